package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veritaslab/tribunal/session"
)

func TestRenderInstructionScalar(t *testing.T) {
	state := session.New()
	state.Set("PROMPT", "Cleopatra")

	out := RenderInstruction("SUBJECT: {PROMPT?}", state)
	assert.Equal(t, "SUBJECT: Cleopatra", out)
}

func TestRenderInstructionMissingFieldIsEmpty(t *testing.T) {
	state := session.New()

	out := RenderInstruction("FEEDBACK: {judge_feedback?}", state)
	assert.Equal(t, "FEEDBACK: ", out)
}

func TestRenderInstructionList(t *testing.T) {
	state := session.New()
	state.Append("pos_data", "first finding")
	state.Append("pos_data", "second finding")

	out := RenderInstruction("EVIDENCE:\n{pos_data?}", state)
	assert.Equal(t, "EVIDENCE:\n- first finding\n- second finding", out)
}

func TestRenderInstructionSingleElementListRendersBare(t *testing.T) {
	state := session.New()
	state.Append("neg_data", "only finding")

	out := RenderInstruction("{neg_data?}", state)
	assert.Equal(t, "only finding", out)
}

func TestRenderInstructionMultiplePlaceholders(t *testing.T) {
	state := session.New()
	state.Set("PROMPT", "Napoleon")
	state.Set("judge_feedback", "more on exile")

	out := RenderInstruction("S: {PROMPT} F: { judge_feedback? }", state)
	assert.Equal(t, "S: Napoleon F: more on exile", out)
}

func TestRenderInstructionLeavesNonPlaceholderBracesAlone(t *testing.T) {
	state := session.New()

	out := RenderInstruction(`JSON example: {"a": 1}`, state)
	assert.Equal(t, `JSON example: {"a": 1}`, out)
}
