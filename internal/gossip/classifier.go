package gossip

import (
	"time"

	"github.com/Marwakhot/chronicles/internal/platform/config"
	"github.com/Marwakhot/chronicles/internal/user"
)

// Subject 是分类器的输入：一个用户的累计统计与特质汇总。
type Subject struct {
	Stats  user.CumulativeStats
	Traits TraitProfile
}

// rule 是一条独立的判定规则，命中即产生一个对应的信号。
type rule struct {
	signal Signal
	match  func(c *Classifier, s Subject) bool
}

// rules 按固定顺序求值，各规则互不排斥。
var rules = []rule{
	// --- 活跃度 ---
	{SignalNewPlayer, func(c *Classifier, s Subject) bool {
		return s.Stats.TotalChoices <= c.cfg.NewPlayerMaxChoices
	}},
	{SignalActivePlayer, func(c *Classifier, s Subject) bool {
		return s.Stats.TotalChoices >= c.cfg.ActivePlayerMinChoices
	}},

	// --- 完成度 ---
	{SignalAchievementHunter, func(c *Classifier, s Subject) bool {
		return len(s.Stats.EndingsUnlocked) >= c.cfg.AchievementMinEndings
	}},
	{SignalBingePlayer, func(c *Classifier, s Subject) bool {
		return s.Stats.StoriesFinished >= c.cfg.BingeMinFinished
	}},

	// --- 开始与完成不匹配 ---
	{SignalSpeedRunner, func(c *Classifier, s Subject) bool {
		return s.Stats.TotalChoices >= c.cfg.SpeedRunnerMinChoices &&
			s.Stats.StoriesFinished <= c.cfg.SpeedRunnerMaxFinished
	}},
	{SignalIndecisive, func(c *Classifier, s Subject) bool {
		return s.Stats.StoriesStarted >= c.cfg.IndecisiveMinStarted &&
			s.Stats.StoriesFinished <= c.cfg.IndecisiveMaxFinished
	}},
	{SignalMysteriousStranger, func(c *Classifier, s Subject) bool {
		return s.Stats.StoriesFinished == 0 &&
			s.Stats.StoriesStarted >= c.cfg.StrangerMinStarted &&
			s.Stats.TotalChoices >= c.cfg.StrangerMinChoices
	}},

	// --- 特质 ---
	{SignalHighBetrayal, func(c *Classifier, s Subject) bool {
		return c.traitsReady(s, Slot1) && s.Traits.Score(Slot1).Mean < c.cfg.BetrayalMaxLoyalty
	}},
	{SignalLowCompassion, func(c *Classifier, s Subject) bool {
		return c.traitsReady(s, Slot2) && s.Traits.Score(Slot2).Mean < c.cfg.CompassionMaxLow
	}},
	{SignalHighSurvival, func(c *Classifier, s Subject) bool {
		return c.traitsReady(s, Slot3) && s.Traits.Score(Slot3).Mean > c.cfg.SurvivalMinHigh
	}},
	{SignalHeroism, func(c *Classifier, s Subject) bool {
		return c.traitsReady(s, Slot1, Slot2) &&
			s.Traits.Score(Slot1).Mean > c.cfg.HeroismMinLoyalty &&
			s.Traits.Score(Slot2).Mean > c.cfg.HeroismMinCompassion
	}},
	{SignalManipulator, func(c *Classifier, s Subject) bool {
		return c.traitsReady(s, Slot2, Slot3) &&
			s.Traits.Score(Slot3).Mean > c.cfg.ManipulatorMinSurvival &&
			s.Traits.Score(Slot2).Mean < c.cfg.ManipulatorMaxCompassion
	}},
	{SignalVirtuous, func(c *Classifier, s Subject) bool {
		return c.traitsReady(s, Slot2) && s.Traits.Score(Slot2).Mean > c.cfg.VirtuousMinCompassion
	}},
	{SignalDarkPath, func(c *Classifier, s Subject) bool {
		return c.traitsReady(s, Slot1, Slot2) &&
			s.Traits.Score(Slot1).Mean < c.cfg.DarkPathMaxLoyalty &&
			s.Traits.Score(Slot2).Mean < c.cfg.DarkPathMaxCompassion
	}},
	{SignalRuleBreaker, func(c *Classifier, s Subject) bool {
		return c.traitsReady(s, Slot1, Slot3) &&
			s.Traits.Score(Slot1).Mean < c.cfg.RuleBreakerMaxLoyalty &&
			s.Traits.Score(Slot3).Mean > c.cfg.RuleBreakerMinSurvival
	}},
	{SignalConformist, func(c *Classifier, s Subject) bool {
		if !c.traitsReady(s, Slot1, Slot2, Slot3) {
			return false
		}
		for _, score := range s.Traits.Slots {
			if score.Mean < c.cfg.ConformistBandLow || score.Mean > c.cfg.ConformistBandHigh {
				return false
			}
		}
		return true
	}},

	// --- 回归 ---
	{SignalReturningPlayer, func(c *Classifier, s Subject) bool {
		latest, previous := s.Traits.LatestUpdate, s.Traits.PreviousUpdate
		if latest.IsZero() || previous.IsZero() {
			return false
		}
		return latest.Sub(previous) >= c.cfg.ReturningMinGap &&
			c.now().Sub(latest) <= c.cfg.ReturningMaxSince
	}},
}

// Classifier 对单个用户求值全部规则。对相同的输入和阈值，输出的信号集合是确定的。
type Classifier struct {
	cfg config.RuleConfig
	now func() time.Time
}

// NewClassifier 创建分类器。now 为 nil 时使用 time.Now。
func NewClassifier(cfg config.RuleConfig, now func() time.Time) *Classifier {
	if now == nil {
		now = time.Now
	}
	return &Classifier{cfg: cfg, now: now}
}

// Classify 返回命中的全部信号，顺序与规则表一致。一条都不命中时返回空切片。
func (c *Classifier) Classify(s Subject) []Signal {
	signals := make([]Signal, 0, 4)
	for _, r := range rules {
		if r.match(c, s) {
			signals = append(signals, r.signal)
		}
	}
	return signals
}

// traitsReady 要求用户有足够的选择数，且所涉及的每个槽位都有足够的记录支撑。
func (c *Classifier) traitsReady(s Subject, slots ...Slot) bool {
	if s.Stats.TotalChoices < c.cfg.TraitMinChoices {
		return false
	}
	for _, slot := range slots {
		if s.Traits.Score(slot).Count < c.cfg.TraitMinSamples {
			return false
		}
	}
	return true
}
