// Package report renders plan results for people and for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	service "github.com/okian/teamsplit/internal/app"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

const (
	tableMinWidth = 6
	tablePadding  = 2
)

// CheckFormat reports whether format names a supported output format.
func CheckFormat(format string) error {
	switch format {
	case "", FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Write renders res in the given format.
func Write(w io.Writer, format string, res *service.Result) error {
	if err := CheckFormat(format); err != nil {
		return err
	}
	if format == FormatJSON {
		return JSON(w, res)
	}
	return Text(w, res)
}

// Text writes the score gap, total variance, a profile table with the raw
// divided-attribute mean, and the roster of every team.
func Text(w io.Writer, res *service.Result) error {
	ew := &errWriter{w: w}

	ew.printf("Minimum score gap between teams: %s\n", num(res.Balance))
	ew.printf("Total team variance: %s\n", num(res.TotalVariance))
	ew.printf("Profile difference: %s\n", num(res.ProfileDifference))
	ew.printf("Cost: %s (trial %d of %d, seed %d)\n", num(res.Cost), res.BestTrial+1, res.Trials, res.Seed)

	ew.printf("\nTeam profiles:\n")
	tw := tabwriter.NewWriter(ew, tableMinWidth, 0, tablePadding, ' ', tabwriter.AlignRight)
	header := append([]string{"Team"}, res.ProfileAttributes...)
	if res.DividedAttribute != "" {
		header = append(header, res.DividedAttribute)
	}
	fmt.Fprintf(tw, "%s\t\n", strings.Join(header, "\t"))
	for i, team := range res.Teams {
		cells := make([]string, 0, len(header))
		cells = append(cells, fmt.Sprintf("Team %d", i+1))
		for _, v := range team.Profile {
			cells = append(cells, fmt.Sprintf("%.1f", v))
		}
		if res.DividedAttribute != "" {
			cells = append(cells, fmt.Sprintf("%.1f", team.DividedMean))
		}
		fmt.Fprintf(tw, "%s\t\n", strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for i, team := range res.Teams {
		ew.printf("\nTeam %d (total score: %s):\n", i+1, num(team.Score))
		for _, name := range team.Players {
			ew.printf("%s\n", name)
		}
	}
	return ew.err
}

// JSON writes res as indented JSON.
func JSON(w io.Writer, res *service.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

// num formats v with up to three decimals and no trailing zeros.
func num(v float64) string {
	s := fmt.Sprintf("%.3f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

func (e *errWriter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(e, format, args...)
}
