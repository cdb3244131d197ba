package prompts

import (
	"fmt"
	"strings"
)

// Input is a superset of the fields any generation prompt might need.
// Missing fields render as empty and are skipped.
type Input struct {
	LessonTitle string
	Subject     string
	GradeLevel  string
	Tone        string
	Detail      string
	// Section types the caller asked for (intro, content, activities, ...).
	Sections []string
	// Free-text instruction appended verbatim at the end.
	Instruction string
	// For part/activity generation: the part being targeted.
	PartType  string
	PartTitle string
}

func contextLines(in Input) string {
	var b strings.Builder
	write := func(label, val string) {
		val = strings.TrimSpace(val)
		if val == "" {
			return
		}
		fmt.Fprintf(&b, "%s: %s\n", label, val)
	}
	write("Lesson title", in.LessonTitle)
	write("Subject", in.Subject)
	write("Grade level", in.GradeLevel)
	write("Tone", in.Tone)
	write("Level of detail", in.Detail)
	if len(in.Sections) > 0 {
		write("Requested sections", strings.Join(in.Sections, ", "))
	}
	return b.String()
}

// Lesson builds the prompt for a full lesson document.
func Lesson(in Input) string {
	var b strings.Builder
	b.WriteString("You are an experienced teacher preparing structured lesson content for a school portal.\n")
	b.WriteString("Produce a complete lesson as a single JSON document matching the provided schema.\n\n")
	b.WriteString(contextLines(in))
	b.WriteString("\nRules:\n")
	b.WriteString("- Every part needs a unique id, a type, a title and a body written in plain prose.\n")
	b.WriteString("- Only parts of type \"activities\" or \"practice\" may contain activities.\n")
	b.WriteString("- Activity durations are estimates in minutes and must not be negative.\n")
	b.WriteString("- Tags are short lowercase topic labels, at most six.\n")
	if instr := strings.TrimSpace(in.Instruction); instr != "" {
		b.WriteString("\nAdditional instruction from the teacher:\n")
		b.WriteString(instr)
		b.WriteString("\n")
	}
	return b.String()
}

// Part builds the prompt for a single additional lesson part.
func Part(in Input) string {
	var b strings.Builder
	b.WriteString("You are an experienced teacher extending an existing lesson in a school portal.\n")
	b.WriteString("Produce one lesson part as a single JSON object matching the provided schema.\n\n")
	b.WriteString(contextLines(in))
	if pt := strings.TrimSpace(in.PartType); pt != "" {
		fmt.Fprintf(&b, "Part type to produce: %s\n", pt)
	}
	if title := strings.TrimSpace(in.PartTitle); title != "" {
		fmt.Fprintf(&b, "Working title for the part: %s\n", title)
	}
	b.WriteString("\nRules:\n")
	b.WriteString("- The part needs a unique id, a type, a title and a body written in plain prose.\n")
	b.WriteString("- Include activities only when the part type is \"activities\" or \"practice\".\n")
	if instr := strings.TrimSpace(in.Instruction); instr != "" {
		b.WriteString("\nAdditional instruction from the teacher:\n")
		b.WriteString(instr)
		b.WriteString("\n")
	}
	return b.String()
}

// Activities builds the prompt for a batch of activities for one part.
func Activities(in Input) string {
	var b strings.Builder
	b.WriteString("You are an experienced teacher designing classroom activities for a school portal.\n")
	b.WriteString("Produce a JSON object with an \"activities\" array matching the provided schema.\n\n")
	b.WriteString(contextLines(in))
	if title := strings.TrimSpace(in.PartTitle); title != "" {
		fmt.Fprintf(&b, "Lesson part the activities belong to: %s\n", title)
	}
	b.WriteString("\nRules:\n")
	b.WriteString("- Each activity needs a unique id, a type, a title and step-by-step instructions.\n")
	b.WriteString("- Estimated durations are in minutes and must not be negative.\n")
	b.WriteString("- Mark an activity attachable only when students are expected to hand in work for it.\n")
	if instr := strings.TrimSpace(in.Instruction); instr != "" {
		b.WriteString("\nAdditional instruction from the teacher:\n")
		b.WriteString(instr)
		b.WriteString("\n")
	}
	return b.String()
}

// Repair embeds malformed model output and asks for a corrected document.
// Run at low temperature so the content drifts as little as possible.
func Repair(malformed string) string {
	var b strings.Builder
	b.WriteString("The JSON document below is malformed or does not match the required schema.\n")
	b.WriteString("Return a corrected version of the same document as valid JSON matching the provided schema.\n")
	b.WriteString("Keep the content unchanged wherever possible; fix only structure, types and missing fields.\n")
	b.WriteString("Return nothing but the JSON document.\n\n")
	b.WriteString("Malformed document:\n")
	b.WriteString(malformed)
	return b.String()
}
