// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package identify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/ideation-engine/pkg/types"
)

// systemPreamble frames every identifier request.
const systemPreamble = "You are an AI assistant whose primary goal is to identify promising, new, and key scientific problems " +
	"based on existing scientific literature, in order to aid researchers in discovering novel and significant " +
	"research opportunities that can advance the field.\n\n"

// formatReminder is appended when a response could not be parsed and
// the request is retried.
const formatReminder = "\n\nYour previous response could not be parsed. Respond with exactly two sections " +
	"labeled 'Problem:' and 'Rationale:', in that order, and no other text."

// generationPromptTmpl asks the model for an initial research problem
// grounded in the assembled context.
var generationPromptTmpl = template.Must(template.New("generation").Parse(systemPreamble +
	`You are going to generate a research problem that should be original, clear, feasible, relevant, and significant to its field. This will be based on the title and abstract of the target paper, those of {{.NumReferences}} related papers in the existing literature, and {{.NumEntities}} entities potentially connected to the research area.

Understanding of the target paper, related papers, and entities is essential:
- The target paper is the primary research study you aim to enhance or build upon through future research, serving as the central source and focus for identifying and developing the specific research problem.
- The related papers are studies related to the target paper, indicating their direct relevance and connection to the primary research topic you are focusing on, and providing additional context and insights that are essential for understanding and expanding upon the target paper.
- The entities can include topics, keywords, individuals, events, or any subjects with possible direct or indirect connections to the target paper or the related studies, serving as auxiliary sources of inspiration or information that may be instrumental in formulating the research problem.

Your approach should be systematic:
- Start by thoroughly reading the title and abstract of the target paper to understand its core focus.
- Next, proceed to read the titles and abstracts of the related papers to gain a broader perspective and insights relevant to the primary research topic.
- Finally, explore the entities to further broaden your perspective, drawing upon a diverse pool of inspiration and information, while keeping in mind that not all may be relevant.

I am going to provide the target paper, related papers, and entities, as follows:

{{.TargetPaper}}{{.RelatedPapers}}{{.Entities}}With the provided target paper, related papers, and entities, your objective now is to formulate a research problem that not only builds upon these existing studies but also strives to be original, clear, feasible, relevant, and significant. Before crafting the research problem, revisit the title and abstract of the target paper, to ensure it remains the focal point of your research problem identification process.

{{.TargetPaper}}Then, following your review of the above content, please proceed to generate one research problem with the rationale, in the format of
Problem:
Rationale:
`))

// refinementPromptTmpl asks the model to revise a reviewed problem,
// targeting the weak metrics while preserving the strong ones.
var refinementPromptTmpl = template.Must(template.New("refinement").Parse(systemPreamble +
	`You are going to refine the research problem that you formulated, which is: '{{.Problem}}'.

Expert reviewers have evaluated this problem across {{.NumMetrics}} dimensions: {{.AllMetrics}}, and identified key areas for improvement in {{.Weak}}. Your challenge is to enhance these aspects while maintaining the strengths in {{.Strong}}.

Please follow this systematic approach for refinement:
- Begin with a comprehensive review of your research problem and its underlying rationale, while revisiting the context in which it was formulated, including the target paper, related papers, and entities.
- Next, familiarize yourself with the definitions of the target evaluation criteria identified as the primary areas for improvement: {{.Weak}}, and then proceed to carefully read the reviews and feedback provided by expert reviewers on these criteria.
- Finally, based on the insights gained from the reviews and feedback, refine your research problem and its rationale, ensuring that the revised problem is original, clear, feasible, relevant, and significant to its field.

The context in which the problem was formulated is as follows:

{{.TargetPaper}}{{.RelatedPapers}}{{.Entities}}{{if .PriorDrafts}}Earlier drafts of this problem, oldest first, each already superseded:
{{range .PriorDrafts}}- {{.}}
{{end}}
{{end}}I am going to provide the previous problem with its rationale, followed by each of the evaluation criteria, reviews, and feedback for {{.Weak}} needing improvement, as follows:

Problem: {{.Problem}}
Rationale: {{.Rationale}}

{{range .Details}}{{.Metric}}:
- Definition: {{.Definition}}
- Review: {{.Review}}
- Feedback: {{.Feedback}}

{{end}}Finally, with these reviews and feedback about {{.Weak}} in mind while maintaining the strengths in {{.Strong}}, please craft a revised version of the problem with the rationale, in the format of
Problem:
Rationale:
`))

type generationData struct {
	NumReferences int
	NumEntities   int
	TargetPaper   string
	RelatedPapers string
	Entities      string
}

type refinementData struct {
	Problem       string
	Rationale     string
	NumMetrics    int
	AllMetrics    string
	Weak          string
	Strong        string
	TargetPaper   string
	RelatedPapers string
	Entities      string
	PriorDrafts   []string
	Details       []feedbackDetail
}

type feedbackDetail struct {
	Metric     types.Metric
	Definition string
	Review     string
	Feedback   string
}

func renderGenerationPrompt(cx *types.Context) (string, error) {
	data := generationData{
		NumReferences: len(cx.References),
		NumEntities:   len(cx.Entities),
		TargetPaper:   formatTargetPaper(&cx.Paper),
		RelatedPapers: formatRelatedPapers(cx.References, true),
		Entities:      formatEntities(cx.Entities),
	}
	var buf bytes.Buffer
	if err := generationPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderRefinementPrompt(cx *types.Context, req RefineRequest, weak, strong []types.Metric) (string, error) {
	details := make([]feedbackDetail, 0, len(weak))
	for _, m := range weak {
		ms := req.Last.Scorecard.Scores[m]
		details = append(details, feedbackDetail{
			Metric:     m,
			Definition: req.Definitions[m],
			Review:     ms.Review,
			Feedback:   ms.Feedback,
		})
	}

	data := refinementData{
		Problem:       req.Last.Proposal.Statement,
		Rationale:     req.Last.Proposal.Rationale,
		NumMetrics:    len(req.Last.Scorecard.Order),
		AllMetrics:    grammaticalList(metricNames(req.Last.Scorecard.Order)),
		Weak:          grammaticalList(metricNames(weak)),
		Strong:        grammaticalList(metricNames(strong)),
		TargetPaper:   formatTargetPaper(&cx.Paper),
		RelatedPapers: formatRelatedPapers(cx.References, false),
		Entities:      formatEntities(cx.Entities),
		PriorDrafts:   summarizeDrafts(req.Older),
		Details:       details,
	}
	var buf bytes.Buffer
	if err := refinementPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatTargetPaper(paper *types.PaperRecord) string {
	return fmt.Sprintf("Target paper title: %s\nTarget paper abstract: %s\n\n", paper.Title, paper.Abstract)
}

func formatRelatedPapers(refs []types.Reference, includeAbstract bool) string {
	var b strings.Builder
	for i, r := range refs {
		fmt.Fprintf(&b, "Related paper #%d title: %s", i+1, r.Title)
		if includeAbstract {
			fmt.Fprintf(&b, "\nRelated paper #%d abstract: %s", i+1, r.Abstract)
		}
		b.WriteString("\n\n")
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

// summarizeDrafts compresses superseded rounds into one line each so the
// refinement prompt stays bounded regardless of history depth.
func summarizeDrafts(older []types.HistoryEntry) []string {
	summaries := make([]string, 0, len(older))
	for _, e := range older {
		summaries = append(summaries, fmt.Sprintf("Round %d (mean score %.1f): %s",
			e.Proposal.Round, e.Scorecard.Aggregate(), firstSentence(e.Proposal.Statement)))
	}
	return summaries
}

// firstSentence truncates text at the first sentence boundary, or at a
// fixed length when no boundary is found.
func firstSentence(text string) string {
	const maxLen = 240
	if i := strings.IndexAny(text, ".?!"); i >= 0 && i < maxLen {
		return text[:i+1]
	}
	if len(text) > maxLen {
		return text[:maxLen] + "..."
	}
	return text
}

func metricNames(metrics []types.Metric) []string {
	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = string(m)
	}
	return names
}

// grammaticalList joins items as natural language: "a", "a and b",
// "a, b, and c".
func grammaticalList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}
