package conversation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{status: "completed", terminal: true},
		{status: "Completed", terminal: true},
		{status: "ARCHIVED", terminal: true},
		{status: "concluida", terminal: true},
		{status: "Arquivado", terminal: true},
		{status: " finalizado ", terminal: true},
		{status: "completed\t", terminal: true},
		{status: "\r\narchived\n", terminal: true},
		{status: "completed\u00a0", terminal: false},
		{status: "\u2003archived", terminal: false},
		{status: "active", terminal: false},
		{status: "paused", terminal: false},
		{status: "", terminal: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestTerminalStatusesAreLowercase(t *testing.T) {
	for _, s := range TerminalStatuses() {
		assert.True(t, Status(s).IsTerminal(), s)
		assert.Equal(t, strings.ToLower(s), s)
	}
	assert.Contains(t, TerminalStatuses(), "completed")
	assert.Contains(t, TerminalStatuses(), "archived")
}

func TestParseDirection(t *testing.T) {
	assert.Equal(t, DirectionInbound, ParseDirection("inbound"))
	assert.Equal(t, DirectionOutbound, ParseDirection("OUTBOUND"))
	assert.Equal(t, DirectionUnknown, ParseDirection("system"))
	assert.Equal(t, DirectionUnknown, ParseDirection(""))
	assert.Equal(t, DirectionInbound, ParseDirection("inbound\r\n"))
}

func TestControlledBy(t *testing.T) {
	assert.True(t, ControlledBy("Human").IsHuman())
	assert.False(t, ControlledBy("ai").IsHuman())
	assert.True(t, ControlledBy("AI").IsAI())
	assert.False(t, ControlledBy("").IsAI())
	assert.True(t, ControlledBy("human\n").IsHuman())
	assert.True(t, ControlledBy("\tai ").IsAI())
	assert.False(t, ControlledBy("human\u00a0").IsHuman())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "completed", Normalize(" \tCompleted\r\n"))
	assert.Equal(t, "inbound", Normalize("INBOUND\n"))
	// Unicode spaces are kept, as btrim with the same cutset keeps them.
	assert.Equal(t, "\u00a0human", Normalize("\u00a0Human"))
	assert.Equal(t, "", Normalize(" \t "))
}
