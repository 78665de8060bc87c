package types

type TTSReq struct {
	Word   string `json:"word"`
	Phrase string `json:"phrase"`
}

type TTSResp struct {
	MimeType       string `json:"mimeType"`
	WordAudioURL   string `json:"wordAudioUrl"`
	PhraseAudioURL string `json:"phraseAudioUrl"`
}

type CardResp struct {
	ID     string `json:"id"`
	Emoji  string `json:"emoji,omitempty"`
	Word   string `json:"word"`
	Phrase string `json:"phrase"`
}

type CardsResp struct {
	Cards []CardResp `json:"cards"`
}

type HealthResp struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Engine  string `json:"engine"`
	Store   string `json:"store"`
	Voice   string `json:"voice"`
}

type ErrorResp struct {
	Error string `json:"error"`
}
