// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/ideation-engine/pkg/types"
)

// reviewerPreamble frames every reviewer request.
const reviewerPreamble = "You are an AI assistant whose primary goal is to assess the quality and validity " +
	"of scientific problems across diverse dimensions, in order to aid researchers in " +
	"refining their problems based on your evaluations and feedback, thereby enhancing " +
	"the impact and reach of their work.\n\n"

// reviewReminder is appended when a reviewer response could not be
// parsed and the request is retried.
const reviewReminder = "\n\nYour previous response could not be parsed. Respond with exactly three sections " +
	"labeled 'Review:', 'Feedback:', and 'Rating (1-5):', in that order, with the rating as a single digit from 1 to 5."

// reviewPromptTmpl is the per-metric evaluation prompt. Each reviewer
// of the panel renders it with its own focus and rubric.
var reviewPromptTmpl = template.Must(template.New("review").Parse(reviewerPreamble +
	`You are going to evaluate a research problem for its {{.MetricLower}}, focusing on {{.Focus}}.

As part of your evaluation, you can refer to the existing studies and entities that may be related to the problem, which will help in understanding the context of the problem for a more comprehensive assessment.
- The existing studies refer to the target paper that has been pivotal in identifying the problem, as well as the related papers that have been additionally referenced in the discovery phase of the problem.
- The entities refer to topics, keywords, individuals, events, or any subjects with possible direct or indirect connections to the target paper or the related studies, used as auxiliary sources of inspiration or information when formulating the research problem.

The existing studies (target paper & related papers) and entities are as follows:

{{.TargetPaper}}{{.RelatedPapers}}{{.Entities}}Now, proceed with your {{.MetricLower}} evaluation approach that should be systematic:
- Start by thoroughly reading the research problem and its rationale, keeping in mind the context provided by the existing studies and entities mentioned above.
- Next, generate a review and feedback that should be constructive, helpful, and concise, focusing on the {{.MetricLower}} of the problem.
- Finally, provide a score on a 5-point Likert scale, with 1 being the lowest, please ensuring a discerning and critical evaluation to avoid a tendency towards uniformly high ratings (4-5) unless fully justified:
{{.RubricLines}}
I am going to provide the research problem with its rationale, as follows:

Problem: {{.Problem}}
Rationale: {{.Rationale}}

After your evaluation of the above content, please provide your review, feedback, and rating, in the format of
Review:
Feedback:
Rating (1-5):
`))

type reviewData struct {
	MetricLower   string
	Focus         string
	RubricLines   string
	TargetPaper   string
	RelatedPapers string
	Entities      string
	Problem       string
	Rationale     string
}

func renderReviewPrompt(spec *ReviewerSpec, cx *types.Context, proposal *types.Proposal) (string, error) {
	var rubric strings.Builder
	for i, anchor := range spec.Rubric {
		fmt.Fprintf(&rubric, "-- %d. %s\n", types.ScoreMin+i, anchor)
	}

	data := reviewData{
		MetricLower:   strings.ToLower(string(spec.Metric)),
		Focus:         spec.Focus,
		RubricLines:   rubric.String(),
		TargetPaper:   formatTargetPaper(&cx.Paper),
		RelatedPapers: formatRelatedPapers(cx.References),
		Entities:      formatEntities(cx.Entities),
		Problem:       proposal.Statement,
		Rationale:     proposal.Rationale,
	}

	var buf bytes.Buffer
	if err := reviewPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatTargetPaper(paper *types.PaperRecord) string {
	return fmt.Sprintf("Target paper title: %s\nTarget paper abstract: %s\n\n", paper.Title, paper.Abstract)
}

// formatRelatedPapers lists reference titles only. Reviewers get the
// compact form; abstracts appear in the generation prompt.
func formatRelatedPapers(refs []types.Reference) string {
	var b strings.Builder
	for i, r := range refs {
		fmt.Fprintf(&b, "Related paper #%d title: %s\n\n", i+1, r.Title)
	}
	return b.String()
}

func formatEntities(entities []types.Entity) string {
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}
	return fmt.Sprintf("Entities (separated by the token '|'): %s\n\n", strings.Join(names, " | "))
}
