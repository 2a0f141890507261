package config

import "reflect"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// VocabularyChanged is true if the word list, an answer or the
	// recognition language changed. Running sessions keep their copy.
	VocabularyChanged bool
	WordChanges       []WordDiff

	// GameChanged is true if any timing, geometry or locale setting of new
	// live sessions changed.
	GameChanged bool

	// RestartRequired lists sections that changed but only take effect after
	// a restart (listen address, providers, storage).
	RestartRequired []string
}

// WordDiff describes what changed for a single prompt word.
type WordDiff struct {
	Word          string
	AnswerChanged bool
	Added         bool
	Removed       bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	d.WordChanges = diffWords(old.Vocabulary.Words, new.Vocabulary.Words)
	d.VocabularyChanged = len(d.WordChanges) > 0 ||
		old.Vocabulary.Language != new.Vocabulary.Language ||
		!sameOrder(old.Vocabulary.Words, new.Vocabulary.Words)

	d.GameChanged = old.Game != new.Game

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if !sameProviders(old.Providers, new.Providers) {
		d.RestartRequired = append(d.RestartRequired, "providers")
	}
	if old.Storage != new.Storage {
		d.RestartRequired = append(d.RestartRequired, "storage")
	}
	return d
}

// diffWords reports added, removed and re-answered words keyed by prompt.
func diffWords(old, new []WordEntry) []WordDiff {
	oldAnswers := make(map[string]string, len(old))
	for _, w := range old {
		oldAnswers[w.Word] = w.Answer
	}
	newAnswers := make(map[string]string, len(new))
	for _, w := range new {
		newAnswers[w.Word] = w.Answer
	}

	var out []WordDiff
	for _, w := range old {
		answer, ok := newAnswers[w.Word]
		switch {
		case !ok:
			out = append(out, WordDiff{Word: w.Word, Removed: true})
		case answer != w.Answer:
			out = append(out, WordDiff{Word: w.Word, AnswerChanged: true})
		}
	}
	for _, w := range new {
		if _, ok := oldAnswers[w.Word]; !ok {
			out = append(out, WordDiff{Word: w.Word, Added: true})
		}
	}
	return out
}

func sameOrder(a, b []WordEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Word != b[i].Word {
			return false
		}
	}
	return true
}

func sameProviders(a, b ProvidersConfig) bool {
	if !sameEntry(a.STT, b.STT) || len(a.STTFallbacks) != len(b.STTFallbacks) {
		return false
	}
	for i := range a.STTFallbacks {
		if !sameEntry(a.STTFallbacks[i], b.STTFallbacks[i]) {
			return false
		}
	}
	return true
}

func sameEntry(a, b ProviderEntry) bool {
	return a.Name == b.Name && a.APIKey == b.APIKey && a.BaseURL == b.BaseURL &&
		a.Model == b.Model && reflect.DeepEqual(a.Options, b.Options)
}
