package mqtt

import "strings"

// Topics builds the bridge topics under a prefix.
type Topics struct {
	Prefix string
}

func (t Topics) join(leaf string) string {
	p := strings.TrimSuffix(t.Prefix, "/")
	if p == "" {
		return leaf
	}
	return p + "/" + leaf
}

func (t Topics) Command() string  { return t.join("command") }
func (t Topics) Response() string { return t.join("response") }
func (t Topics) State() string    { return t.join("state") }
func (t Topics) Status() string   { return t.join("status") }
