package gossip

import (
	"time"
)

// Signal 是从玩家数据中识别出的一类行为模式。
type Signal string

const (
	SignalNewPlayer          Signal = "newPlayer"
	SignalActivePlayer       Signal = "activePlayer"
	SignalAchievementHunter  Signal = "achievementHunter"
	SignalBingePlayer        Signal = "bingePlayer"
	SignalSpeedRunner        Signal = "speedRunner"
	SignalIndecisive         Signal = "indecisive"
	SignalMysteriousStranger Signal = "mysteriousStranger"
	SignalHighBetrayal       Signal = "highBetrayal"
	SignalLowCompassion      Signal = "lowCompassion"
	SignalHighSurvival       Signal = "highSurvival"
	SignalHeroism            Signal = "heroism"
	SignalManipulator        Signal = "manipulator"
	SignalVirtuous           Signal = "virtuous"
	SignalDarkPath           Signal = "darkPath"
	SignalRuleBreaker        Signal = "ruleBreaker"
	SignalConformist         Signal = "conformist"
	SignalReturningPlayer    Signal = "returningPlayer"

	// 以下两种不对应任何规则，只在一次生成没有任何信号时兜底使用
	SignalQuietSeason     Signal = "quietSeason"
	SignalSocietyWhispers Signal = "societyWhispers"
)

// Severity 是八卦条目的严重程度标签。
type Severity string

const (
	SeverityScandalous Severity = "scandalous"
	SeverityIntriguing Severity = "intriguing"
	SeverityImpressive Severity = "impressive"
	SeverityCurious    Severity = "curious"
	SeverityAmusing    Severity = "amusing"

	// DefaultSeverity 用于没有登记严重程度的信号。
	DefaultSeverity = SeverityIntriguing
)

// Valid 判断是否为五种已定义的严重程度之一。
func (s Severity) Valid() bool {
	switch s {
	case SeverityScandalous, SeverityIntriguing, SeverityImpressive, SeverityCurious, SeverityAmusing:
		return true
	}
	return false
}

// EditionLayout 是期号的日期格式。
const EditionLayout = "2006-01-02"

// EditionOf 返回某个时间点所属的期号。
func EditionOf(t time.Time) string {
	return t.UTC().Format(EditionLayout)
}

// Item 是一条匿名八卦。条目不保存任何指向来源用户的引用。
type Item struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Text        string    `gorm:"not null;type:text" json:"text"`
	SignalType  Signal    `gorm:"not null;type:varchar(64);index" json:"type"`
	Severity    Severity  `gorm:"not null;type:varchar(16)" json:"severity"`
	GeneratedAt time.Time `gorm:"not null;index" json:"timestamp"`
	Edition     string    `gorm:"not null;type:varchar(10);index" json:"edition"`
	Anonymous   bool      `gorm:"not null;default:true" json:"anonymous"`
}

// TableName 指定八卦条目的表名
func (Item) TableName() string {
	return "gossip_items"
}

// Feed 是读接口返回的一页八卦。
type Feed struct {
	Items   []Item `json:"gossip"`
	Edition string `json:"edition"`
}
