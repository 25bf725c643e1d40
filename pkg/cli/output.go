package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"principal-registry/internal/domain"
)

// defaultOutputFormat is table on an interactive terminal and json otherwise.
func defaultOutputFormat() string {
	if term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec // fd fits in int
		return "table"
	}
	return "json"
}

func validateOutputFormat(output string) error {
	if output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

// getOutputFormat returns the effective output format from the root command's persistent flags.
func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintTable writes rows under a header as aligned columns.
func PrintTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

// principalView is the CLI rendering of a principal.
type principalView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	ExternalID *string    `json:"external_id,omitempty"`
	State      string     `json:"state"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

func toView(p domain.Principal) principalView {
	return principalView{
		ID:         p.ID,
		Name:       p.Name,
		Email:      p.Email,
		ExternalID: p.ExternalID,
		State:      string(p.State),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

var principalHeader = []string{"ID", "NAME", "EMAIL", "EXTERNAL_ID", "STATE", "CREATED_AT"}

func (v principalView) row() []string {
	ext := ""
	if v.ExternalID != nil {
		ext = *v.ExternalID
	}
	return []string{v.ID, v.Name, v.Email, ext, v.State, v.CreatedAt.Format(time.RFC3339)}
}

func printPrincipals(cmd *cobra.Command, ps []domain.Principal) error {
	views := make([]principalView, len(ps))
	rows := make([][]string, len(ps))
	for i, p := range ps {
		views[i] = toView(p)
		rows[i] = views[i].row()
	}
	if getOutputFormat(cmd) == "json" {
		return PrintJSON(cmd.OutOrStdout(), views)
	}
	return PrintTable(cmd.OutOrStdout(), principalHeader, rows)
}

func printPrincipal(cmd *cobra.Command, p *domain.Principal) error {
	if getOutputFormat(cmd) == "json" {
		return PrintJSON(cmd.OutOrStdout(), toView(*p))
	}
	return PrintTable(cmd.OutOrStdout(), principalHeader, [][]string{toView(*p).row()})
}
