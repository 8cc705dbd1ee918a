package graph

// ToolsOrNext routes a broker node: a pending tool call goes to the tools
// node, a tool result (or anything else) moves the conversation forward.
// Checking the tool-result case first keeps a broker that both consumed a
// result and emitted plain text from bouncing back into the tools node.
func ToolsOrNext(toolsNode, nextNode string) RouteFunc {
	return func(s *State) string {
		last, ok := s.Last()
		if !ok {
			return nextNode
		}
		if last.IsToolResult() {
			return nextNode
		}
		if last.HasToolCalls() {
			return toolsNode
		}
		return nextNode
	}
}
