package mcp

// --- Discover Tool ---

// DiscoverOutput is the output for the discover tool
type DiscoverOutput struct {
	Trees []string `json:"trees" jsonschema:"description=Command addresses (host:port) of responding trees"`
	Count int      `json:"count" jsonschema:"description=Number of trees found"`
}

// --- Command Tools ---

// CommandOutput is the output for set_pixel, set_all and turn_off
type CommandOutput struct {
	Address string `json:"address" jsonschema:"description=Command address the command was sent to"`
	Command string `json:"command" jsonschema:"description=The command that was applied"`
	Result  string `json:"result" jsonschema:"description=Reply from the tree"`
}
