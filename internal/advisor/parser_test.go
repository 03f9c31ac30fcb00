package advisor

import (
	"testing"

	"TradeSentry/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReplyFullGrammar(t *testing.T) {
	text := `Based on the trend and volume profile:

Action: BUY
Reason: price reclaimed MA20 on rising volume; pullback held the open
Price: 1.216
Size: 0.2
StopLoss: 1.185
Target: 1.260
`
	r := ParseReply(text)
	require.True(t, r.HasAction)
	assert.Equal(t, model.ActionBuy, r.Action)
	assert.Equal(t, "price reclaimed MA20 on rising volume; pullback held the open", r.Reason)
	assert.Equal(t, 1.216, r.Price)
	assert.Equal(t, 0.2, r.SizeFraction)
	assert.Equal(t, 1.185, r.StopLoss)
	assert.Equal(t, 1.26, r.Target)
}

func TestParseReplyMarkdownDecoration(t *testing.T) {
	text := "- **Action**: SELL\n- **Reason**: lost MA5 support\n- **StopLoss**: N/A\n- **Target**: N/A"
	r := ParseReply(text)
	require.True(t, r.HasAction)
	assert.Equal(t, model.ActionSell, r.Action)
	assert.Zero(t, r.StopLoss)
	assert.Zero(t, r.Target)
}

func TestParseReplyPercentSize(t *testing.T) {
	r := ParseReply("Action: BUY\nSize: 20%")
	assert.Equal(t, 0.2, r.SizeFraction)

	r = ParseReply("Action: BUY\nSize: 150%")
	assert.Zero(t, r.SizeFraction, "fractions above 1 are discarded")
}

func TestParseReplyNoToken(t *testing.T) {
	r := ParseReply("The market looks uncertain today. I would wait for confirmation.")
	assert.False(t, r.HasAction)

	// A token must match exactly; "BUYING" is prose, not the token.
	r = ParseReply("Action: BUYING more seems unwise")
	assert.False(t, r.HasAction)
}

func TestParseReplyTemplateEchoIsNoToken(t *testing.T) {
	// Echoing the reply template names every token; that is ambiguity,
	// not an answer.
	r := ParseReply("Action: [BUY/SELL/HOLD]\nReason: could not decide")
	assert.False(t, r.HasAction)

	// A repeated identical token is still unambiguous.
	r = ParseReply("Action: BUY (yes, BUY)")
	require.True(t, r.HasAction)
	assert.Equal(t, model.ActionBuy, r.Action)
}

func TestParseReplyCaseInsensitiveToken(t *testing.T) {
	r := ParseReply("action: hold")
	require.True(t, r.HasAction)
	assert.Equal(t, model.ActionHold, r.Action)
}
