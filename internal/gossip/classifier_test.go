package gossip

import (
	"testing"
	"time"

	"github.com/Marwakhot/chronicles/internal/progress"
	"github.com/Marwakhot/chronicles/internal/user"
	"github.com/stretchr/testify/assert"
)

var classifierNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	return NewClassifier(testConfig(t).Rules, func() time.Time { return classifierNow })
}

// traits 构造一个每个槽位都有 count 条记录支撑的特质汇总。
func traits(slot1, slot2, slot3 float64, count int) TraitProfile {
	return TraitProfile{Slots: [NumSlots]SlotScore{
		{Mean: slot1, Count: count},
		{Mean: slot2, Count: count},
		{Mean: slot3, Count: count},
	}}
}

func neutral() TraitProfile {
	return traits(NeutralMean, NeutralMean, NeutralMean, 0)
}

func TestClassifyNewPlayerOnly(t *testing.T) {
	c := newTestClassifier(t)
	agg := NewAggregator(testConfig(t).Aliases)

	got := c.Classify(Subject{
		Stats:  user.CumulativeStats{TotalChoices: 3, StoriesStarted: 1, EndingsUnlocked: []string{}},
		Traits: agg.Aggregate(nil),
	})
	assert.Equal(t, []Signal{SignalNewPlayer}, got)
}

func TestClassifyHighBetrayal(t *testing.T) {
	c := newTestClassifier(t)
	agg := NewAggregator(testConfig(t).Aliases)
	records := []progress.Record{
		record(map[string]interface{}{"loyalty": 20.0}, classifierNow),
		record(map[string]interface{}{"statName1": 20.0}, classifierNow),
		record(map[string]interface{}{"loyalty": 20.0}, classifierNow),
	}

	got := c.Classify(Subject{
		Stats:  user.CumulativeStats{TotalChoices: 60, StoriesFinished: 1},
		Traits: agg.Aggregate(records),
	})
	assert.Contains(t, got, SignalHighBetrayal)
	assert.NotContains(t, got, SignalNewPlayer)
}

func TestClassifyTraitRulesNeedEvidence(t *testing.T) {
	c := newTestClassifier(t)

	// 只有两条记录，不足以下结论
	got := c.Classify(Subject{
		Stats:  user.CumulativeStats{TotalChoices: 60, StoriesFinished: 1},
		Traits: traits(10, 10, 90, 2),
	})
	assert.NotContains(t, got, SignalHighBetrayal)
	assert.NotContains(t, got, SignalLowCompassion)
	assert.NotContains(t, got, SignalHighSurvival)

	// 记录足够但选择数太少
	got = c.Classify(Subject{
		Stats:  user.CumulativeStats{TotalChoices: 10},
		Traits: traits(10, 10, 90, 5),
	})
	assert.Equal(t, []Signal{SignalNewPlayer}, got)
}

func TestClassifyRules(t *testing.T) {
	tests := []struct {
		name    string
		stats   user.CumulativeStats
		traits  TraitProfile
		want    []Signal
		exclude []Signal
	}{
		{
			name:  "active player",
			stats: user.CumulativeStats{TotalChoices: 100, StoriesStarted: 2, StoriesFinished: 2},
			want:  []Signal{SignalActivePlayer},
		},
		{
			name:  "achievement hunter and binge player",
			stats: user.CumulativeStats{TotalChoices: 40, StoriesStarted: 3, StoriesFinished: 3, EndingsUnlocked: []string{"a-1", "a-2", "b-1", "c-1", "c-2"}},
			want:  []Signal{SignalAchievementHunter, SignalBingePlayer},
		},
		{
			name:  "indecisive",
			stats: user.CumulativeStats{TotalChoices: 30, StoriesStarted: 6, StoriesFinished: 1},
			want:  []Signal{SignalIndecisive},
		},
		{
			name:  "mysterious stranger",
			stats: user.CumulativeStats{TotalChoices: 20, StoriesStarted: 3},
			want:  []Signal{SignalMysteriousStranger},
		},
		{
			name:   "heroism and virtuous",
			stats:  user.CumulativeStats{TotalChoices: 30, StoriesStarted: 2, StoriesFinished: 2},
			traits: traits(80, 80, 50, 3),
			want:   []Signal{SignalHeroism, SignalVirtuous},
		},
		{
			name:   "manipulator",
			stats:  user.CumulativeStats{TotalChoices: 30, StoriesStarted: 2, StoriesFinished: 2},
			traits: traits(50, 30, 66, 3),
			want:   []Signal{SignalManipulator},
		},
		{
			name:   "dark path with betrayal and low compassion",
			stats:  user.CumulativeStats{TotalChoices: 30, StoriesStarted: 2, StoriesFinished: 2},
			traits: traits(20, 20, 50, 3),
			want:   []Signal{SignalHighBetrayal, SignalLowCompassion, SignalDarkPath},
		},
		{
			name:   "rule breaker",
			stats:  user.CumulativeStats{TotalChoices: 30, StoriesStarted: 2, StoriesFinished: 2},
			traits: traits(35, 50, 61, 3),
			want:   []Signal{SignalRuleBreaker},
		},
		{
			name:   "high survival",
			stats:  user.CumulativeStats{TotalChoices: 30, StoriesStarted: 2, StoriesFinished: 2},
			traits: traits(50, 50, 71, 3),
			want:   []Signal{SignalHighSurvival},
		},
		{
			name:   "conformist band is inclusive",
			stats:  user.CumulativeStats{TotalChoices: 30, StoriesStarted: 2, StoriesFinished: 2},
			traits: traits(40, 60, 50, 3),
			want:   []Signal{SignalConformist},
		},
		{
			name:    "trait thresholds are strict",
			stats:   user.CumulativeStats{TotalChoices: 30, StoriesStarted: 2, StoriesFinished: 2},
			traits:  traits(30, 25, 70, 3),
			exclude: []Signal{SignalHighBetrayal, SignalLowCompassion, SignalHighSurvival},
		},
	}

	c := newTestClassifier(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := tt.traits
			if profile == (TraitProfile{}) {
				profile = neutral()
			}
			got := c.Classify(Subject{Stats: tt.stats, Traits: profile})
			if tt.want != nil {
				assert.Equal(t, tt.want, got)
			}
			for _, s := range tt.exclude {
				assert.NotContains(t, got, s)
			}
		})
	}
}

func TestClassifyReturningPlayer(t *testing.T) {
	c := newTestClassifier(t)
	stats := user.CumulativeStats{TotalChoices: 30, StoriesStarted: 2, StoriesFinished: 2}

	profile := neutral()
	profile.LatestUpdate = classifierNow.Add(-10 * 24 * time.Hour)
	profile.PreviousUpdate = profile.LatestUpdate.Add(-45 * 24 * time.Hour)
	assert.Equal(t, []Signal{SignalReturningPlayer}, c.Classify(Subject{Stats: stats, Traits: profile}))

	// 回归已经太久
	profile.LatestUpdate = classifierNow.Add(-120 * 24 * time.Hour)
	profile.PreviousUpdate = profile.LatestUpdate.Add(-45 * 24 * time.Hour)
	assert.Empty(t, c.Classify(Subject{Stats: stats, Traits: profile}))

	// 间隔太短
	profile.LatestUpdate = classifierNow.Add(-24 * time.Hour)
	profile.PreviousUpdate = profile.LatestUpdate.Add(-5 * 24 * time.Hour)
	assert.Empty(t, c.Classify(Subject{Stats: stats, Traits: profile}))
}

func TestClassifyIsDeterministicAndMayBeEmpty(t *testing.T) {
	c := newTestClassifier(t)
	s := Subject{
		Stats:  user.CumulativeStats{TotalChoices: 30, StoriesStarted: 2, StoriesFinished: 2},
		Traits: traits(50, 50, 50, 1),
	}

	first := c.Classify(s)
	assert.Empty(t, first)
	assert.NotNil(t, first)
	assert.Equal(t, first, c.Classify(s))
}

func TestClassifyHonoursConfiguredThresholds(t *testing.T) {
	rules := testConfig(t).Rules
	rules.NewPlayerMaxChoices = 2
	c := NewClassifier(rules, nil)

	got := c.Classify(Subject{Stats: user.CumulativeStats{TotalChoices: 3}, Traits: neutral()})
	assert.NotContains(t, got, SignalNewPlayer)
}
