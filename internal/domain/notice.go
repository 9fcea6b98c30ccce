package domain

// Button is an inline keyboard button. Exactly one of Data or URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Notice is a platform-neutral outgoing message. Text is HTML. When Photo or
// Media is set the text is sent as its caption.
type Notice struct {
	Text    string
	Photo   []byte
	Media   *MediaRef
	Buttons [][]Button
}

func CallbackButton(text, data string) Button {
	return Button{Text: text, Data: data}
}

func LinkButton(text, url string) Button {
	return Button{Text: text, URL: url}
}
