package advisor

import (
	"regexp"
	"strconv"
	"strings"

	"TradeSentry/internal/model"
)

// Reply is the semi-structured content extracted from a free-form advisory
// response. HasAction is false when no recognized action token was found;
// numeric fields are zero when absent or unparseable.
type Reply struct {
	Action       model.Action
	HasAction    bool
	Reason       string
	Price        float64
	SizeFraction float64
	StopLoss     float64
	Target       float64
	Raw          string
}

var actionTokenRe = regexp.MustCompile(`\b(BUY|SELL|HOLD)\b`)

// ParseReply scans the reply line by line for the grammar fields. The action
// token is matched exactly against the enumerated set; everything else in
// the reply is advisory prose and ignored.
func ParseReply(text string) Reply {
	reply := Reply{Raw: text}

	for _, line := range strings.Split(text, "\n") {
		key, value, ok := splitField(line)
		if !ok {
			continue
		}
		switch key {
		case "action":
			if tok, ok := matchActionToken(value); ok {
				reply.Action = tok
				reply.HasAction = true
			}
		case "reason":
			if reply.Reason == "" {
				reply.Reason = value
			}
		case "price":
			reply.Price = parseNumber(value)
		case "size":
			reply.SizeFraction = parseFraction(value)
		case "stoploss", "stop-loss", "stop loss":
			reply.StopLoss = parseNumber(value)
		case "target":
			reply.Target = parseNumber(value)
		}
	}
	return reply
}

// matchActionToken extracts the action token from the value. A value that
// names several distinct tokens (a reply echoing the template line, say
// "[BUY/SELL/HOLD]") is ambiguous and counts as no token at all.
func matchActionToken(value string) (model.Action, bool) {
	tokens := actionTokenRe.FindAllString(strings.ToUpper(value), -1)
	if len(tokens) == 0 {
		return "", false
	}
	first := tokens[0]
	for _, tok := range tokens[1:] {
		if tok != first {
			return "", false
		}
	}
	return model.Action(first), true
}

// splitField strips markdown decoration and splits "key: value".
func splitField(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	line = strings.Trim(line, "*-• \t")
	idx := strings.IndexAny(line, ":：")
	if idx < 0 {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(strings.Trim(line[:idx], "* ")))
	value = strings.TrimSpace(strings.TrimLeft(line[idx:], ":： "))
	if key == "" || value == "" {
		return "", "", false
	}
	return key, value, true
}

var numberRe = regexp.MustCompile(`-?\d+(\.\d+)?`)

func parseNumber(value string) float64 {
	if strings.EqualFold(strings.TrimSpace(value), "n/a") {
		return 0
	}
	m := numberRe.FindString(value)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseFraction accepts both "0.2" and "20%". Values outside (0, 1] are
// discarded rather than clamped.
func parseFraction(value string) float64 {
	v := parseNumber(value)
	if strings.Contains(value, "%") {
		v /= 100
	}
	if v <= 0 || v > 1 {
		return 0
	}
	return v
}
