package apcupsd

import (
	"strings"

	"github.com/sweeney/upslist/internal/upserr"
)

// Block markers. Every status report starts with an "APC" pair and ends with
// an "END APC" pair.
const (
	HeaderKey    = "APC"
	TrailerToken = "END"
	SentinelKey  = TrailerToken + " " + HeaderKey
)

// Pair is one "KEY : value" line of a status report.
type Pair struct {
	Key   string
	Value string
}

// StatusBlock is a parsed status report in wire order, markers included.
type StatusBlock []Pair

// Get returns the last value recorded for key.
func (b StatusBlock) Get(key string) (string, bool) {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i].Key == key {
			return b[i].Value, true
		}
	}
	return "", false
}

type blockState int

const (
	blockStart blockState = iota // nothing seen yet
	blockBody                    // header seen, collecting pairs
	blockEnded                   // sentinel seen
)

// statusParser is the state machine for one status report.
type statusParser struct {
	state blockState
	pairs StatusBlock
}

// Feed consumes the text of one non-empty frame.
func (p *statusParser) Feed(line string) error {
	pair := splitPair(line)
	switch p.state {
	case blockStart:
		if pair.Key != HeaderKey {
			return upserr.Protocolf(line, "status did not start with %q", HeaderKey)
		}
		p.state = blockBody
	case blockBody:
		if pair.Key == SentinelKey {
			p.state = blockEnded
		}
	case blockEnded:
		return upserr.Protocolf(line, "data after terminator %q", SentinelKey)
	}
	p.pairs = append(p.pairs, pair)
	return nil
}

// Finish is called on the zero-length frame and returns the complete block.
func (p *statusParser) Finish() (StatusBlock, error) {
	if p.state != blockEnded {
		return nil, &upserr.ProtocolError{Msg: "status did not finish with terminator " + SentinelKey}
	}
	return p.pairs, nil
}

// splitPair splits on the first ": " and trims trailing whitespace from
// both halves. apcupsd pads keys to a fixed width ("STATUS   : ONLINE").
func splitPair(line string) Pair {
	key, value, _ := strings.Cut(line, ": ")
	return Pair{
		Key:   strings.TrimRight(key, " \t\r\n"),
		Value: strings.TrimRight(value, " \t\r\n"),
	}
}

// ParseStatus parses a status report given as newline-separated lines, the
// form apcaccess prints. It applies the same rules as a network read.
func ParseStatus(text string) (StatusBlock, error) {
	var p statusParser
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := p.Feed(line); err != nil {
			return nil, err
		}
	}
	return p.Finish()
}
