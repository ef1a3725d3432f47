package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// ReportingSink renders a finished checklist (PDF, share sheet, ...).
type ReportingSink interface {
	Render(ctx context.Context, report Report) error
}

type ReportMeta struct {
	ChecklistID string
	StoreName   string
	AuditorName string
	SubmittedAt time.Time
	Location    *Location
}

type ReportLine struct {
	Order         int
	Category      string
	Title         string
	Weight        int
	Response      Response
	Justification string
	Photos        int
}

type Report struct {
	Meta       ReportMeta
	Score      ScoreResult
	Lines      []ReportLine
	ShareTitle string
	ShareText  string
}

// BuildReport pairs every question with its answer. It reuses score and
// never recomputes it.
func BuildReport(score ScoreResult, answers *AnswerSet, questions []Question, meta ReportMeta) Report {
	lines := make([]ReportLine, 0, len(questions))
	for _, q := range sortedByOrder(questions) {
		line := ReportLine{Order: q.Order, Category: q.Category, Title: q.Title, Weight: q.Weight}
		if a := answers.Answer(q.ID); a != nil {
			line.Response = a.Response
			line.Justification = a.Justification
			line.Photos = len(a.Evidence)
		}
		lines = append(lines, line)
	}

	pct := formatPercent(score.OverallPercent)
	return Report{
		Meta:       meta,
		Score:      score,
		Lines:      lines,
		ShareTitle: fmt.Sprintf("Checklist %s - %s", meta.StoreName, pct),
		ShareText:  fmt.Sprintf("Checklist realizado na loja %s com pontuação de %s", meta.StoreName, pct),
	}
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", DisplayPercent(v))
}

// TextSink writes a plain-text rendition of the report.
type TextSink struct {
	W io.Writer
}

func (s TextSink) Render(ctx context.Context, r Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.ShareTitle)
	fmt.Fprintf(&b, "Loja: %s\n", r.Meta.StoreName)
	fmt.Fprintf(&b, "Auditor: %s\n", r.Meta.AuditorName)
	fmt.Fprintf(&b, "Data: %s\n", r.Meta.SubmittedAt.Format("02/01/2006 15:04"))
	if loc := r.Meta.Location; loc != nil {
		fmt.Fprintf(&b, "Localização: %.6f, %.6f (±%.0fm)\n", loc.Lat, loc.Lng, loc.AccuracyMeters)
	} else {
		b.WriteString("Localização: sem GPS\n")
	}
	fmt.Fprintf(&b, "Pontuação: %s\n", formatPercent(r.Score.OverallPercent))
	fmt.Fprintf(&b, "Status: %s\n\n", r.Score.Rating.Label)

	for _, l := range r.Lines {
		resp := string(l.Response)
		if resp == "" {
			resp = "-"
		}
		fmt.Fprintf(&b, "%d. [%s] %s (peso %d): %s\n", l.Order, l.Category, l.Title, l.Weight, resp)
		if l.Justification != "" {
			fmt.Fprintf(&b, "   Justificativa: %s\n", l.Justification)
		}
		if l.Photos > 0 {
			fmt.Fprintf(&b, "   Fotos: %d\n", l.Photos)
		}
	}

	if len(r.Score.Findings) > 0 {
		b.WriteString("\nPontos de atenção:\n")
		for _, f := range r.Score.Findings {
			fmt.Fprintf(&b, "- %s (%s): -%.1f\n", f.Title, f.Response, f.PointsLost)
		}
	}

	_, err := io.WriteString(s.W, b.String())
	return err
}
