package gossip

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allSignals = []Signal{
	SignalNewPlayer, SignalActivePlayer, SignalAchievementHunter, SignalBingePlayer,
	SignalSpeedRunner, SignalIndecisive, SignalMysteriousStranger, SignalHighBetrayal,
	SignalLowCompassion, SignalHighSurvival, SignalHeroism, SignalManipulator,
	SignalVirtuous, SignalDarkPath, SignalRuleBreaker, SignalConformist,
	SignalReturningPlayer, SignalQuietSeason, SignalSocietyWhispers,
}

var synthNow = time.Date(2025, 2, 14, 23, 30, 0, 0, time.UTC)

func newTestSynthesizer(t *testing.T, seed uint64) *Synthesizer {
	t.Helper()
	set, err := LoadTemplates("")
	require.NoError(t, err)
	return NewSynthesizer(set, NewRandom(seed, seed+1), func() time.Time { return synthNow })
}

func TestBuiltinTemplatesCoverEverySignal(t *testing.T) {
	set, err := LoadTemplates("")
	require.NoError(t, err)

	for _, signal := range allSignals {
		pool, ok := set.Signals[signal]
		require.True(t, ok, "missing templates for %s", signal)
		assert.NotEmpty(t, pool.Templates, signal)
		assert.True(t, pool.Severity.Valid(), signal)
	}
	assert.Equal(t, SeverityScandalous, set.severityOf(SignalHighBetrayal))
	assert.Equal(t, SeverityAmusing, set.severityOf(SignalIndecisive))
	assert.Equal(t, SeverityCurious, set.severityOf(SignalSpeedRunner))
}

func TestSynthesizeItem(t *testing.T) {
	s := newTestSynthesizer(t, 7)

	item := s.Synthesize(SignalBingePlayer)
	assert.Equal(t, SignalBingePlayer, item.SignalType)
	assert.Equal(t, SeverityImpressive, item.Severity)
	assert.Contains(t, s.templates.Signals[SignalBingePlayer].Templates, item.Text)
	assert.True(t, item.Anonymous)
	assert.Equal(t, synthNow, item.GeneratedAt)
	assert.Equal(t, "2025-02-14", item.Edition)
}

func TestSynthesizeUnknownSignalFallsBack(t *testing.T) {
	s := newTestSynthesizer(t, 7)

	item := s.Synthesize(Signal("duelist"))
	assert.Equal(t, DefaultSeverity, item.Severity)
	assert.True(t, item.Severity.Valid())
	assert.Contains(t, s.templates.Default.Templates, item.Text)
}

func TestSynthesizeSeverityAlwaysValid(t *testing.T) {
	s := newTestSynthesizer(t, 1)
	for _, signal := range append(allSignals, "", "unknown") {
		assert.True(t, s.Synthesize(signal).Severity.Valid(), signal)
	}
}

func TestSynthesizeIsReproducibleWithSeed(t *testing.T) {
	signals := []Signal{SignalHighBetrayal, SignalSpeedRunner, SignalIndecisive, SignalHighBetrayal, SignalConformist}

	a := newTestSynthesizer(t, 42).SynthesizeAll(signals)
	b := newTestSynthesizer(t, 42).SynthesizeAll(signals)
	require.Len(t, a, len(signals))
	assert.Equal(t, a, b)
}

func TestSynthesizeUsesInjectedRandom(t *testing.T) {
	set, err := LoadTemplates("")
	require.NoError(t, err)
	s := NewSynthesizer(set, fixedRandom(2), func() time.Time { return synthNow })

	item := s.Synthesize(SignalHighBetrayal)
	assert.Equal(t, set.Signals[SignalHighBetrayal].Templates[2], item.Text)
}

// fixedRandom 总是返回同一个下标，洗牌时不做任何交换。
type fixedRandom int

func (f fixedRandom) IntN(n int) int { return int(f) % n }

func (f fixedRandom) Shuffle(int, func(i, j int)) {}

func TestParseTemplatesValidation(t *testing.T) {
	_, err := ParseTemplates([]byte("signals:\n  newPlayer:\n    templates: [\"hi\"]\n"))
	assert.Error(t, err, "default pool is required")

	_, err = ParseTemplates([]byte("default:\n  templates: [\"x\"]\nsignals:\n  newPlayer:\n    severity: shocking\n    templates: [\"hi\"]\n"))
	assert.Error(t, err)

	_, err = ParseTemplates([]byte("default:\n  templates: [\"x\"]\nsignals:\n  newPlayer:\n    severity: amusing\n"))
	assert.Error(t, err)

	set, err := ParseTemplates([]byte("default:\n  templates: [\"x\"]\nsignals:\n  newPlayer:\n    templates: [\"hi\"]\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSeverity, set.Default.Severity)
	assert.Equal(t, DefaultSeverity, set.severityOf(SignalNewPlayer))
}

func TestLoadTemplatesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gossip.yaml")
	content := "default:\n  severity: curious\n  templates: [\"custom default\"]\nsignals:\n  speedRunner:\n    severity: amusing\n    templates: [\"zoom\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	set, err := LoadTemplates(path)
	require.NoError(t, err)
	s := NewSynthesizer(set, NewRandom(1, 2), nil)

	item := s.Synthesize(SignalSpeedRunner)
	assert.Equal(t, "zoom", item.Text)
	assert.Equal(t, SeverityAmusing, item.Severity)
	fallback := s.Synthesize(SignalHeroism)
	assert.Equal(t, "custom default", fallback.Text)
	assert.Equal(t, SeverityCurious, fallback.Severity)

	_, err = LoadTemplates(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
