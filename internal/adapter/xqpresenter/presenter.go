package xqpresenter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Presenter writes either the formatted text or the raw payload as JSON.
type Presenter struct {
	out    io.Writer
	asJSON bool
}

func NewPresenter(out io.Writer, asJSON bool) *Presenter {
	return &Presenter{out: out, asJSON: asJSON}
}

func (p *Presenter) Show(text string, payload any) error {
	if p == nil || p.out == nil {
		return nil
	}
	if p.asJSON && payload != nil {
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(payload)
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	_, err := fmt.Fprintln(p.out, text)
	return err
}
