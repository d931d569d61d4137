package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"   ___                _                   ", "#818cf8"},
	{"  / __|___ _ _  __ __(_)___ _ _ __ _ ___  ", "#a78bfa"},
	{" | (__/ _ \\ ' \\/ _/ _| / -_) '_/ _` / -_) ", "#c084fc"},
	{"  \\___\\___/_||_\\__\\__|_\\___|_| \\__, \\___| ", "#e879f9"},
	{"                               |___/      ", "#f472b6"},
}

// PrintBanner writes the colored startup banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.NewOutput(w).ColorProfile()

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  Type a request, e.g. \"book service\". /cancel leaves a form, exit quits.").Faint())
	fmt.Fprintln(w)
}
