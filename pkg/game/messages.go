package game

import "fmt"

// Messages holds the player-facing texts a [Session] emits.
type Messages struct {
	// Prompt precedes the current word, e.g. "Translate into English: ".
	Prompt string
	// Correct and Wrong are format strings receiving the transcribed answer.
	Correct string
	Wrong   string
	// Listening is shown while a recording awaits its result.
	Listening string
	// RecognitionFailed is shown when the service could not transcribe audio.
	RecognitionFailed string
	// NetworkError is shown when the service could not be reached.
	NetworkError string
	// NoDevice is shown when recording permission was refused.
	NoDevice string
	// LoadFailed is shown when the vocabulary could not be loaded.
	LoadFailed string
	// Finished is shown once the last gate is passed.
	Finished string
}

// EnglishMessages is the default message set.
var EnglishMessages = Messages{
	Prompt:            "Translate into English: ",
	Correct:           "Correct! %s",
	Wrong:             "No: %s",
	Listening:         "🤔 Listening...",
	RecognitionFailed: "Recognition failed",
	NetworkError:      "Network error",
	NoDevice:          "Error: no access to camera/microphone",
	LoadFailed:        "Could not load words",
	Finished:          "🏆 Finish!",
}

// RussianMessages matches the original Russian-speaking UI.
var RussianMessages = Messages{
	Prompt:            "Переведи на английский язык: ",
	Correct:           "Верно! %s",
	Wrong:             "Нет: %s",
	Listening:         "🤔 Слушаю...",
	RecognitionFailed: "Ошибка распознавания",
	NetworkError:      "Ошибка сети",
	NoDevice:          "Ошибка: Нет доступа к камере/микрофону",
	LoadFailed:        "Не удалось загрузить слова",
	Finished:          "🏆 Финиш!",
}

// MessagesFor returns the message set for a locale tag ("en", "ru").
// Unknown locales get [EnglishMessages].
func MessagesFor(locale string) Messages {
	if locale == "ru" {
		return RussianMessages
	}
	return EnglishMessages
}

func (m Messages) correct(answer string) string { return fmt.Sprintf(m.Correct, answer) }
func (m Messages) wrong(answer string) string   { return fmt.Sprintf(m.Wrong, answer) }
