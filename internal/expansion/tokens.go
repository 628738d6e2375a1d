package expansion

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE used for prompt size estimates
const DefaultEncoding = "cl100k_base"

// TokenCounter estimates the token count of a prompt
type TokenCounter interface {
	Count(text string) int
}

// ApproxCounter estimates four characters per token
type ApproxCounter struct{}

// Count implements TokenCounter
func (ApproxCounter) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// TiktokenCounter counts tokens with a tiktoken encoding
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count implements TokenCounter
func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// NewTokenCounter returns a tiktoken counter, or ApproxCounter when the
// encoding cannot be loaded
func NewTokenCounter(encoding string) (TokenCounter, error) {
	c, err := NewTiktokenCounter(encoding)
	if err != nil {
		return ApproxCounter{}, err
	}
	return c, nil
}
