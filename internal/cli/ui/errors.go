package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	ormerrors "github.com/crimson-games/bakuretsu/internal/orm/errors"
)

// ErrorOptions configures an error report
type ErrorOptions struct {
	Context     string
	Problem     string
	Suggestions []string
	Hints       []string
	NoColor     bool
}

// FormatError formats an error report
//
//	ENTITY NOT FOUND: Usr
//	   No registered entity is named 'Usr'.
//
//	   Did you mean: User?
//
//	   → List entities: bakuretsu types
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	header := color.New(color.FgRed, color.Bold)
	body := color.New(color.FgRed)
	suggest := color.New(color.FgYellow)
	hint := color.New(color.FgCyan)
	if opts.NoColor {
		for _, c := range []*color.Color{header, body, suggest, hint} {
			c.DisableColor()
		}
	}

	if opts.Context != "" {
		header.Fprintf(&b, "%s\n", strings.ToUpper(opts.Context))
	}
	body.Fprintf(&b, "   %s\n", opts.Problem)

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		suggest.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}
	if len(opts.Hints) > 0 {
		b.WriteString("\n")
		for _, h := range opts.Hints {
			hint.Fprintf(&b, "   → %s\n", h)
		}
	}
	return b.String()
}

// WriteError writes a formatted error report
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// UnknownEntityError reports an entity name that matches no registered type
func UnknownEntityError(name string, known []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Context:     "entity not found",
		Problem:     fmt.Sprintf("No registered entity is named '%s'.", name),
		Suggestions: FindSimilar(name, known),
		Hints:       []string{"List entities: bakuretsu types"},
		NoColor:     noColor,
	})
}

// ORMError describes an error returned by the ORM, naming its kind
func ORMError(err error, noColor bool) string {
	opts := ErrorOptions{Problem: err.Error(), NoColor: noColor}

	switch {
	case ormerrors.IsNotFound(err):
		opts.Context = "no such row"
	case errors.Is(err, ormerrors.ErrUniqueViolation), errors.Is(err, ormerrors.ErrForeignKeyViolation),
		errors.Is(err, ormerrors.ErrNotNullViolation), errors.Is(err, ormerrors.ErrCheckViolation):
		opts.Context = "constraint violation"
	case ormerrors.KindOf(err) != 0:
		opts.Context = ormerrors.KindOf(err).String()
	default:
		opts.Context = "error"
	}

	switch ormerrors.KindOf(err) {
	case ormerrors.KindConfiguration:
		opts.Hints = []string{"Check the entity declaration"}
	case ormerrors.KindRelationResolution:
		opts.Hints = []string{"List relations: bakuretsu types --relations"}
	case ormerrors.KindQueryExecution:
		opts.Hints = []string{"Trace SQL: rerun with --verbose"}
	}
	return FormatError(opts)
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}
