package node

// Message is the flattened, provider-facing view of a single node, as
// consumed by a mailbox adapter.
type Message struct {
	Role        Role
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// BuildMessages flattens the path from the tree's root down to n into the
// linear message sequence a provider expects, in root-to-n order.
func (n *Node) BuildMessages() []Message {
	path := n.PathToRoot()
	msgs := make([]Message, 0, len(path))
	for _, node := range path {
		if node.Role == RoleEmpty && node.Content == "" && len(node.ToolCalls) == 0 && len(node.ToolResults) == 0 {
			continue // bare root placeholder, carries no turn
		}
		msgs = append(msgs, Message{
			Role:        node.Role,
			Content:     node.Content,
			ToolCalls:   node.ToolCalls,
			ToolResults: node.ToolResults,
		})
	}
	return msgs
}

// RemoveContext excises the node with the given id from the tree. If the
// removed node carried tool_results, they are reattached to its parent
// before unlinking so that the parent's tool_calls remain paired; the
// removed node's own children are reparented onto its parent in its former
// position. Returns false if no node with id is found in n's subtree.
func (n *Node) RemoveContext(id string) bool {
	target := n.FindBy(func(c *Node) bool { return c.ID == id })
	if target == nil || target.Parent == nil {
		return false
	}
	parent := target.Parent
	idx, ok := target.siblingIndex()
	if !ok {
		return false
	}

	if len(target.ToolResults) > 0 {
		parent.ToolResults = append(parent.ToolResults, target.ToolResults...)
	}

	replacement := make([]*Node, 0, len(parent.Replies)-1+len(target.Replies))
	replacement = append(replacement, parent.Replies[:idx]...)
	for _, child := range target.Replies {
		child.Parent = parent
		replacement = append(replacement, child)
	}
	replacement = append(replacement, parent.Replies[idx+1:]...)
	parent.Replies = replacement

	return true
}

// FindByID returns the node with the given id in n's subtree, or nil.
func (n *Node) FindByID(id string) *Node {
	if id == "" {
		return nil
	}
	return n.FindBy(func(c *Node) bool { return c.ID == id })
}

// IndexPath returns the sequence of reply indices from n's root down to n,
// suitable for relocating the equivalent node after a Clone or a
// save/load round trip.
func (n *Node) IndexPath() []int {
	var path []int
	for cur := n; cur.Parent != nil; cur = cur.Parent {
		idx, _ := cur.siblingIndex()
		path = append([]int{idx}, path...)
	}
	return path
}

// AtIndexPath walks path (as produced by IndexPath) from n, returning the
// node at that position, or n itself with false if the path is invalid for
// this tree (e.g. after structural changes).
func (n *Node) AtIndexPath(path []int) (*Node, bool) {
	cur := n
	for _, idx := range path {
		if idx < 0 || idx >= len(cur.Replies) {
			return n, false
		}
		cur = cur.Replies[idx]
	}
	return cur, true
}
