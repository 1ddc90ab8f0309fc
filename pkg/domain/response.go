package domain

// Response is a single outbound transport message produced by a handler.
type Response struct {
	ChatID    int64
	Text      string
	ImageURLs []string
	Keyboard  *Keyboard
	Err       error
}

type Keyboard struct {
	Title string
	Rows  [][]Button
}

type Button struct {
	Label string
	Data  string
}
