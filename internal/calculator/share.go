package calculator

import (
	"net/url"

	"github.com/opensource-finance/tally/internal/params"
)

// Message is the outgoing share message: who is sharing and the link that
// reopens the calculator with the current assumptions.
type Message struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
	Body string `json:"body"`
}

// ShareURL composes the current assumptions onto the page URL.
func (c *Calculator) ShareURL(page *url.URL) string {
	return params.ShareURL(page, c.params)
}

// Share builds the outgoing message for name. The body is the link itself.
func (c *Calculator) Share(page *url.URL, name string) Message {
	link := c.ShareURL(page)
	return Message{
		Name: name,
		URL:  link,
		Body: link,
	}
}
