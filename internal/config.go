package internal

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`

	SnapshotKey   string        `env:"SNAPSHOT_KEY,default=chat:sessions:v1"`
	TypingTTL     time.Duration `env:"TYPING_TTL,default=10s"`
	PruneInterval time.Duration `env:"PRUNE_INTERVAL,default=2s"`

	IdentityToken string `env:"IDENTITY_TOKEN"`

	CensoredWords   string `env:"CENSORED_WORDS"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
}

// Words splits the comma-separated censored word list, dropping blanks.
func (c Config) Words() []string {
	var words []string
	for _, w := range strings.Split(c.CensoredWords, ",") {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
