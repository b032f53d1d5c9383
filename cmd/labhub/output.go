package main

import (
	"fmt"
	"io"
	"strings"

	"labhub/internal/api"
	"labhub/internal/attachset"
	"labhub/internal/format"
)

// outputOptions carries the global --output flag. An empty format means plain text.
type outputOptions struct {
	format string
}

func (o *outputOptions) validate() error {
	if !o.structured() {
		return nil
	}
	_, err := format.New(o.format)
	return err
}

func (o *outputOptions) structured() bool {
	return o != nil && strings.TrimSpace(o.format) != ""
}

func (o *outputOptions) write(w io.Writer, payload any) error {
	formatter, err := format.New(o.format)
	if err != nil {
		return err
	}
	return formatter.Write(w, payload)
}

func writePlain(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeLabList(w io.Writer, labs []api.Lab) error {
	if len(labs) == 0 {
		return writePlain(w, "no labs\n")
	}
	for _, lab := range labs {
		if err := writePlain(w, "%s\n", formatLabLine(lab)); err != nil {
			return err
		}
	}
	return nil
}

func writeLabDetail(w io.Writer, lab api.Lab) error {
	lines := []string{
		fmt.Sprintf("code: %d", lab.Code),
		fmt.Sprintf("name: %s", lab.Name),
	}
	if lab.Description != "" {
		lines = append(lines, fmt.Sprintf("description: %s", lab.Description))
	}
	lines = appendItems(lines, "objectives", lab.Objectives)
	lines = appendItems(lines, "projects", lab.Projects)
	lines = appendItems(lines, "images", lab.Images)
	if lab.Video != "" {
		lines = append(lines, fmt.Sprintf("video: %s", lab.Video))
	}
	if lab.Podcast != "" {
		lines = append(lines, fmt.Sprintf("podcast: %s", lab.Podcast))
	}
	return writePlain(w, "%s\n", strings.Join(lines, "\n"))
}

func appendItems(lines []string, label, encoded string) []string {
	items := attachset.Decode(encoded)
	if len(items) == 0 {
		return lines
	}
	lines = append(lines, label+":")
	for _, item := range items {
		lines = append(lines, "  - "+item)
	}
	return lines
}

func formatLabLine(lab api.Lab) string {
	media := len(attachset.Decode(lab.Images))
	if lab.Video != "" {
		media++
	}
	if lab.Podcast != "" {
		media++
	}
	return fmt.Sprintf("%d\t%s\t(%d media)", lab.Code, lab.Name, media)
}
