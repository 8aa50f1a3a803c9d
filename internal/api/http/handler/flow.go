package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/assessflow/internal/battery"
	"github.com/Alijeyrad/assessflow/internal/flow"
	"github.com/Alijeyrad/assessflow/internal/service/assessment"
	"github.com/Alijeyrad/assessflow/internal/store"
)

type FlowHandler struct {
	svc assessment.Service
}

func NewFlowHandler(svc assessment.Service) *FlowHandler {
	return &FlowHandler{svc: svc}
}

// GET /api/v1/flow
func (h *FlowHandler) State(c fiber.Ctx) error {
	op, found := operatorID(c)
	if !found {
		return unauthorized(c)
	}
	v, err := h.svc.State(c.Context(), op)
	if err != nil {
		return mapFlowError(c, err)
	}
	return ok(c, v)
}

// DELETE /api/v1/flow
func (h *FlowHandler) Clear(c fiber.Ctx) error {
	op, found := operatorID(c)
	if !found {
		return unauthorized(c)
	}
	v, err := h.svc.Clear(c.Context(), op)
	if err != nil {
		return mapFlowError(c, err)
	}
	return ok(c, v)
}

// POST /api/v1/flow/single
func (h *FlowHandler) StartSingle(c fiber.Ctx) error {
	op, found := operatorID(c)
	if !found {
		return unauthorized(c)
	}
	var req assessment.StartSingleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	v, err := h.svc.StartSingle(c.Context(), op, req)
	if err != nil {
		return mapFlowError(c, err)
	}
	return created(c, v)
}

// POST /api/v1/flow/group
func (h *FlowHandler) StartGroup(c fiber.Ctx) error {
	op, found := operatorID(c)
	if !found {
		return unauthorized(c)
	}
	var req assessment.StartGroupRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	v, err := h.svc.StartGroup(c.Context(), op, req)
	if err != nil {
		return mapFlowError(c, err)
	}
	return created(c, v)
}

// PUT /api/v1/flow/answers/:test
//
// The request body is the answer value itself.
func (h *FlowHandler) RecordAnswer(c fiber.Ctx) error {
	op, found := operatorID(c)
	if !found {
		return unauthorized(c)
	}
	body := c.Body()
	if len(body) == 0 || !json.Valid(body) {
		return badRequest(c, "answer must be a JSON value")
	}
	v, err := h.svc.RecordAnswer(c.Context(), op, c.Params("test"), append(json.RawMessage(nil), body...))
	if err != nil {
		return mapFlowError(c, err)
	}
	return ok(c, v)
}

// PATCH /api/v1/flow/answers
func (h *FlowHandler) RecordAnswers(c fiber.Ctx) error {
	op, found := operatorID(c)
	if !found {
		return unauthorized(c)
	}
	var answers map[string]json.RawMessage
	if err := c.Bind().JSON(&answers); err != nil || len(answers) == 0 {
		return badRequest(c, "body must be an object of test code to answer")
	}
	v, err := h.svc.RecordAnswers(c.Context(), op, answers)
	if err != nil {
		return mapFlowError(c, err)
	}
	return ok(c, v)
}

// GET /api/v1/flow/answers/:test
func (h *FlowHandler) Answer(c fiber.Ctx) error {
	op, found := operatorID(c)
	if !found {
		return unauthorized(c)
	}
	test := c.Params("test")
	v, recorded, err := h.svc.Answer(c.Context(), op, test)
	if err != nil {
		return mapFlowError(c, err)
	}
	if !recorded {
		return notFound(c, "no answer recorded for "+test)
	}
	return ok(c, v)
}

// POST /api/v1/flow/members/:index
func (h *FlowHandler) SelectMember(c fiber.Ctx) error {
	op, found := operatorID(c)
	if !found {
		return unauthorized(c)
	}
	idx, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return badRequest(c, "member index must be an integer")
	}
	v, err := h.svc.SelectMember(c.Context(), op, idx)
	if err != nil {
		return mapFlowError(c, err)
	}
	return ok(c, v)
}

// POST /api/v1/flow/next
func (h *FlowHandler) Next(c fiber.Ctx) error {
	return h.step(c, h.svc.NextMember)
}

// POST /api/v1/flow/previous
func (h *FlowHandler) Previous(c fiber.Ctx) error {
	return h.step(c, h.svc.PreviousMember)
}

// POST /api/v1/flow/submit
func (h *FlowHandler) Submit(c fiber.Ctx) error {
	return h.step(c, h.svc.Submit)
}

// POST /api/v1/flow/review
func (h *FlowHandler) ConfirmReview(c fiber.Ctx) error {
	return h.step(c, h.svc.ConfirmReview)
}

// GET /api/v1/flow/review
func (h *FlowHandler) Review(c fiber.Ctx) error {
	op, found := operatorID(c)
	if !found {
		return unauthorized(c)
	}
	res, err := h.svc.Review(c.Context(), op)
	if err != nil {
		return mapFlowError(c, err)
	}
	return ok(c, res)
}

// GET /api/v1/flow/preview
func (h *FlowHandler) Preview(c fiber.Ctx) error {
	op, found := operatorID(c)
	if !found {
		return unauthorized(c)
	}
	p, err := h.svc.Preview(c.Context(), op)
	if err != nil {
		return mapFlowError(c, err)
	}
	return ok(c, p)
}

func (h *FlowHandler) step(c fiber.Ctx, fn func(ctx context.Context, operatorID string) (*assessment.View, error)) error {
	op, found := operatorID(c)
	if !found {
		return unauthorized(c)
	}
	v, err := fn(c.Context(), op)
	if err != nil {
		return mapFlowError(c, err)
	}
	return ok(c, v)
}

func mapFlowError(c fiber.Ctx, err error) error {
	var incomplete *assessment.IncompleteError
	switch {
	case errors.As(err, &incomplete):
		return unprocessable(c, err.Error(), incomplete.Missing)
	case errors.Is(err, assessment.ErrInvalidRequest),
		errors.Is(err, assessment.ErrPlayerInactive),
		errors.Is(err, assessment.ErrIneligiblePlayer),
		errors.Is(err, assessment.ErrAssessmentUnavailable),
		errors.Is(err, battery.ErrInvalidAnswer),
		errors.Is(err, battery.ErrUnknownTest),
		errors.Is(err, battery.ErrUnknownType),
		errors.Is(err, flow.ErrMemberOutOfRange),
		errors.Is(err, flow.ErrEmptyRoster),
		errors.Is(err, flow.ErrInvalidStep):
		return badRequest(c, err.Error())
	case errors.Is(err, flow.ErrNoActiveSession),
		errors.Is(err, flow.ErrNotGroupMode),
		errors.Is(err, flow.ErrGroupIncomplete),
		errors.Is(err, flow.ErrReviewTerminal),
		errors.Is(err, assessment.ErrAlreadySubmitted),
		errors.Is(err, assessment.ErrSessionChanged),
		errors.Is(err, store.ErrConflict):
		return conflict(c, err.Error())
	case errors.Is(err, assessment.ErrNotConfirmed),
		errors.Is(err, flow.ErrNotConfirmed),
		errors.Is(err, flow.ErrSessionMismatch):
		return badGateway(c)
	default:
		return mapBackendError(c, err)
	}
}
