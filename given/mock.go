package given

// Mock is the placeholder handed to descriptive phase blocks. Every
// accessor returns a Mock again, so chains of any depth never fail, and it
// is a no-op Scoped. Code that needs to tell it apart from a real value
// should use IsMock.
type Mock struct{}

var placeholder = &Mock{}

// NewMock returns the shared placeholder.
func NewMock() *Mock {
	return placeholder
}

// IsMock reports whether v is the placeholder.
func IsMock(v any) bool {
	_, ok := v.(*Mock)
	return ok
}

// Attr returns a Mock for any attribute name.
func (m *Mock) Attr(string) *Mock { return placeholder }

// Index returns a Mock for any key.
func (m *Mock) Index(any) *Mock { return placeholder }

// Call returns a Mock for any arguments.
func (m *Mock) Call(...any) *Mock { return placeholder }

// Enter is a no-op.
func (m *Mock) Enter() error { return nil }

// Exit is a no-op.
func (m *Mock) Exit(Outcome) error { return nil }

func (m *Mock) String() string { return "given.Mock" }
