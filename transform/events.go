package transform

import (
	"strings"

	"golang.org/x/net/html"
)

// event is closed set of things tree walker reports to session.
type event interface {
	isEvent()
}

type startEvent struct {
	node *html.Node
}

type endEvent struct {
	node *html.Node
}

type textEvent struct {
	data string
}

type commentEvent struct {
	data string
}

func (startEvent) isEvent()   {}
func (endEvent) isEvent()     {}
func (textEvent) isEvent()    {}
func (commentEvent) isEvent() {}

func tagOf(n *html.Node) string {
	return strings.ToLower(n.Data)
}

// emit walks subtree of n in document order. Every element produces start
// and end events even when it is void.
func (s *session) emit(n *html.Node) error {
	switch n.Type {
	case html.ElementNode:
		if err := s.handle(startEvent{node: n}); err != nil {
			return err
		}
		if err := s.emitChildren(n); err != nil {
			return err
		}
		return s.handle(endEvent{node: n})
	case html.TextNode:
		return s.handle(textEvent{data: n.Data})
	case html.CommentNode:
		return s.handle(commentEvent{data: n.Data})
	case html.DocumentNode:
		return s.emitChildren(n)
	}
	return nil
}

func (s *session) emitChildren(n *html.Node) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := s.emit(c); err != nil {
			return err
		}
	}
	return nil
}

// skipState tracks region which is swallowed entirely. Nested counts
// elements with the same tag inside the region so they do not close it.
type skipState struct {
	active bool
	tag    string
	nested int
}

func (sk *skipState) begin(tag string) {
	*sk = skipState{active: true, tag: tag}
}

// swallow consumes event while region is active and reports whether it
// did.
func (sk *skipState) swallow(ev event) bool {
	if !sk.active {
		return false
	}
	switch ev := ev.(type) {
	case startEvent:
		if tagOf(ev.node) == sk.tag {
			sk.nested++
		}
	case endEvent:
		if tagOf(ev.node) == sk.tag {
			if sk.nested == 0 {
				*sk = skipState{}
			} else {
				sk.nested--
			}
		}
	}
	return true
}

// handle is single entry point of the state machine.
func (s *session) handle(ev event) error {
	if s.skip.swallow(ev) {
		return nil
	}
	switch ev := ev.(type) {
	case startEvent:
		if err := s.ctx.Err(); err != nil {
			return err
		}
		return s.start(ev.node)
	case endEvent:
		s.end(ev.node)
	case textEvent:
		s.text(ev.data)
	case commentEvent:
		s.comment(ev.data)
	}
	return nil
}
