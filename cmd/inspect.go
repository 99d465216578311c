package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/quickkly/tidyhttp/internal/classify"
	"github.com/quickkly/tidyhttp/internal/logger"
	"github.com/quickkly/tidyhttp/internal/message"
	"github.com/quickkly/tidyhttp/internal/normalize"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"golang.org/x/term"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Show how a message body would be classified",
	Long: `Print the header/body boundary, the content classification and the effect
cleaning would have on a raw HTTP message, as JSON.

Reads stdin when no file is given. Output is colorized on a terminal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

var inspectBodyOnly bool

func init() {
	inspectCmd.Flags().BoolVar(&inspectBodyOnly, "body-only", false, "treat the input as a message body")
}

// boundaryReport describes the header/body separator
type boundaryReport struct {
	HeaderEnd int    `json:"header_end"`
	BodyStart int    `json:"body_start"`
	Ending    string `json:"ending"`
}

// inspectReport is printed by the inspect command
type inspectReport struct {
	Source         string          `json:"source"`
	Kind           string          `json:"kind"`
	URL            string          `json:"url,omitempty"`
	Size           int             `json:"size"`
	Boundary       *boundaryReport `json:"boundary,omitempty"`
	BodyLineEnding string          `json:"body_line_ending"`
	Classification classify.Result `json:"classification"`
	CleanedSize    int             `json:"cleaned_size"`
	WouldModify    bool            `json:"would_modify"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	source := "-"
	var raw []byte
	var err error
	if len(args) == 1 {
		source = args[0]
		raw, err = afero.ReadFile(appFs, source)
	} else {
		raw, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", source, err)
	}

	report := buildInspectReport(message.NewProcessor(logger.FromContext(cmd.Context())), source, raw, inspectBodyOnly)

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = pretty.Pretty(data)

	out := cmd.OutOrStdout()
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		data = pretty.Color(data, nil)
	}
	_, err = out.Write(data)
	return err
}

func buildInspectReport(p *message.Processor, source string, raw []byte, bodyOnly bool) inspectReport {
	report := inspectReport{
		Source: source,
		Kind:   message.DetectKind(raw).String(),
		URL:    message.TargetURL(raw),
		Size:   len(raw),
	}

	if bodyOnly {
		report.Kind = "body"
		report.URL = ""
		out, modified := p.ProcessBody(message.NewRequest(nil, raw))
		report.BodyLineEnding = normalize.DetectLineEnding(raw).String()
		report.Classification = classify.ClassifyBytes(normalize.StripLeadingBlankLines(raw))
		report.CleanedSize = len(out.Body)
		report.WouldModify = modified
		return report
	}

	_, body, boundary, err := message.Split(raw)
	if err == nil {
		report.Boundary = &boundaryReport{
			HeaderEnd: boundary.HeaderEnd,
			BodyStart: boundary.BodyStart,
			Ending:    boundary.Ending.String(),
		}
		report.BodyLineEnding = normalize.DetectLineEnding(body).String()
	}

	verdict, err := p.Classify(raw)
	if errors.Is(err, message.ErrNoBoundary) {
		verdict = classify.Result{Verdict: classify.Unknown, Detail: err.Error()}
	}
	report.Classification = verdict

	res := p.Process(raw)
	report.CleanedSize = len(res.Bytes)
	report.WouldModify = res.Modified
	return report
}
