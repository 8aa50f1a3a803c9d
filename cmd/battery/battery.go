package battery

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Alijeyrad/assessflow/internal/battery"
	"github.com/Alijeyrad/assessflow/pkg/backend"
)

func NewBatteryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "battery",
		Short: "Inspect the built-in assessment test batteries",
	}

	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newShowCommand())

	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every assessment type and its test count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderList(cmd.OutOrStdout())
			return nil
		},
	}
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <type>",
		Short: "Show the tests of one battery",
		Long: `Show the tests of one battery. The type may be given as its identifier
(pitcher_onbaseu) or its URL segment (pitcher-onbaseu).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := backend.ParseAssessmentType(args[0])
			if err != nil {
				return err
			}
			b, err := battery.For(t)
			if err != nil {
				return err
			}
			renderTests(cmd.OutOrStdout(), b)
			return nil
		},
	}
}

func renderList(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Type", "Segment", "Tests"})
	for _, b := range battery.All() {
		table.Append([]string{string(b.Type()), b.Type().Segment(), strconv.Itoa(len(b.Tests()))})
	}
	table.Render()
}

func renderTests(w io.Writer, b battery.Battery) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Code", "Name", "Category", "Result", "Bilateral", "Fields"})
	table.SetAutoWrapText(false)
	for _, t := range b.Tests() {
		fields := make([]string, 0, len(t.Fields))
		for _, f := range t.Fields {
			fields = append(fields, f.Key)
		}
		table.Append([]string{
			t.Code,
			t.Name,
			t.Category,
			string(t.ResultType),
			fmt.Sprint(t.Bilateral),
			strings.Join(fields, ", "),
		})
	}
	table.Render()
}
