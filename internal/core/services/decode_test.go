package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
)

func TestDecodeScenariosEnvelope(t *testing.T) {
	content := `{
		"scenarios": [
			{
				"test_id": "TC-001",
				"name": "Login with valid credentials",
				"description": "Happy path login",
				"preconditions": ["User account exists"],
				"steps": [
					{"action": "Open login page", "input": "", "expected": "Form visible", "refs": ["login"]},
					{"action": "Submit credentials", "input": "alice / secret", "expected": "Dashboard shown"}
				],
				"classification": "functional",
				"priority": "high"
			}
		]
	}`

	scenarios, err := decodeScenarios(content)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)

	s := scenarios[0]
	assert.Equal(t, "TC-001", s.TestID)
	assert.Equal(t, "Login with valid credentials", s.Name)
	assert.Equal(t, []string{"User account exists"}, s.Preconditions)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, "Submit credentials", s.Steps[1].Action)
	assert.Equal(t, []string{"login"}, s.Steps[0].Refs)
}

func TestDecodeScenariosBareArray(t *testing.T) {
	content := `[
		{"name": "Logout", "steps": [{"action": "Click logout", "expected": "Session ended"}]}
	]`

	scenarios, err := decodeScenarios(content)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "Logout", scenarios[0].Name)
}

func TestDecodeScenariosAliases(t *testing.T) {
	// Field names drift; the alias table must pick them up.
	content := `{
		"scenarios": [
			{
				"title": "Password reset",
				"summary": "Reset via email link",
				"prerequisites": ["Email on file"],
				"test_steps": [
					{"step": "Request reset", "test_data": "alice@example.com", "expected_result": "Email sent", "references": ["auth"]}
				],
				"type": "functional",
				"severity": "medium"
			}
		]
	}`

	scenarios, err := decodeScenarios(content)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)

	s := scenarios[0]
	assert.Equal(t, "Password reset", s.Name)
	assert.Equal(t, "Reset via email link", s.Description)
	assert.Equal(t, []string{"Email on file"}, s.Preconditions)
	assert.Equal(t, "functional", s.Classification)
	assert.Equal(t, "medium", s.Priority)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, "Request reset", s.Steps[0].Action)
	assert.Equal(t, "alice@example.com", s.Steps[0].Input)
	assert.Equal(t, "Email sent", s.Steps[0].Expected)
	assert.Equal(t, []string{"auth"}, s.Steps[0].Refs)
}

func TestDecodeScenariosStringSteps(t *testing.T) {
	content := `{"scenarios": [{"name": "Quick check", "steps": ["Open page", "Verify title"]}]}`

	scenarios, err := decodeScenarios(content)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	require.Len(t, scenarios[0].Steps, 2)
	assert.Equal(t, "Open page", scenarios[0].Steps[0].Action)
}

func TestDecodeScenariosSkipsUnusable(t *testing.T) {
	// Scenario without steps and scenario without a name are dropped;
	// the usable one survives.
	content := `{
		"scenarios": [
			{"name": "No steps here"},
			{"steps": [{"action": "Nameless"}]},
			{"name": "Good", "steps": [{"action": "Do it"}]}
		]
	}`

	scenarios, err := decodeScenarios(content)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "Good", scenarios[0].Name)
}

func TestDecodeScenariosErrors(t *testing.T) {
	t.Run("empty content", func(t *testing.T) {
		_, err := decodeScenarios("")
		assert.True(t, errors.Is(err, domain.ErrEmptyResponse))
	})

	t.Run("empty scenarios array", func(t *testing.T) {
		_, err := decodeScenarios(`{"scenarios": []}`)
		assert.True(t, errors.Is(err, domain.ErrEmptyResponse))
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := decodeScenarios(`{"scenarios": [}`)
		assert.True(t, errors.Is(err, domain.ErrMalformedResponse))
	})

	t.Run("nothing usable", func(t *testing.T) {
		_, err := decodeScenarios(`{"scenarios": [{"name": ""}]}`)
		assert.True(t, errors.Is(err, domain.ErrMalformedResponse))
	})
}

func TestRepairJSON(t *testing.T) {
	t.Run("strips surrounding prose and fences", func(t *testing.T) {
		content := "Here are the scenarios:\n```json\n{\"scenarios\": []}\n```\nHope this helps!"
		assert.Equal(t, `{"scenarios": []}`, repairJSON(content))
	})

	t.Run("removes trailing commas", func(t *testing.T) {
		content := `{"scenarios": [{"name": "A", "steps": ["x",],},]}`
		assert.Equal(t, `{"scenarios": [{"name": "A", "steps": ["x"]}]}`, repairJSON(content))
	})

	t.Run("keeps commas inside strings", func(t *testing.T) {
		content := `{"name": "a, b,"}`
		assert.Equal(t, `{"name": "a, b,"}`, repairJSON(content))
	})

	t.Run("normalises smart quotes", func(t *testing.T) {
		content := "{“name”: “A”}"
		assert.Equal(t, `{"name": "A"}`, repairJSON(content))
	})

	t.Run("repaired output decodes", func(t *testing.T) {
		content := "Sure!\n```json\n{\"scenarios\": [{\"name\": \"A\", \"steps\": [{\"action\": \"go\"},]}]}\n```"
		scenarios, err := decodeScenarios(repairJSON(content))
		require.NoError(t, err)
		require.Len(t, scenarios, 1)
		assert.Equal(t, "A", scenarios[0].Name)
	})
}
