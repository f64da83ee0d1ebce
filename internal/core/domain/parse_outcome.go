package domain

type ParseKind int

const (
	ParseStructured ParseKind = iota + 1
	ParseFallback
)

// ParseOutcome is the result of reading LLM output that was asked to be
// structured. Exactly one of Items (Structured) or Text (Fallback) is meaningful.
type ParseOutcome struct {
	Kind  ParseKind
	Items []string
	Text  string
}

func Structured(items []string) ParseOutcome {
	return ParseOutcome{Kind: ParseStructured, Items: items}
}

func Fallback(text string) ParseOutcome {
	return ParseOutcome{Kind: ParseFallback, Text: text}
}
