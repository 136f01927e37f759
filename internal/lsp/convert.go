package lsp

import (
	"go.lsp.dev/protocol"

	"github.com/mvp-joe/fluxion/internal/text"
)

func fromProtocolPosition(p protocol.Position) text.Position {
	return text.Position{Line: int(p.Line), Character: int(p.Character)}
}

func fromProtocolRange(r protocol.Range) text.Range {
	return text.Range{Start: fromProtocolPosition(r.Start), End: fromProtocolPosition(r.End)}
}

func toProtocolPosition(p text.Position) protocol.Position {
	return protocol.Position{Line: uint32(p.Line), Character: uint32(p.Character)}
}

func toProtocolRange(r text.Range) protocol.Range {
	return protocol.Range{Start: toProtocolPosition(r.Start), End: toProtocolPosition(r.End)}
}
