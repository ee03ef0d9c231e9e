package gossip

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

// SignalTemplates 是一种信号的严重程度与候选文本池。
type SignalTemplates struct {
	Severity  Severity `yaml:"severity"`
	Templates []string `yaml:"templates"`
}

// TemplateSet 是信号到文本池的完整映射。Default 用于未登记的信号。
type TemplateSet struct {
	Default SignalTemplates            `yaml:"default"`
	Signals map[Signal]SignalTemplates `yaml:"signals"`
}

// LoadTemplates 读取模板文件；path 为空时使用内置模板。
func LoadTemplates(path string) (*TemplateSet, error) {
	raw := defaultTemplates
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("无法读取八卦模板文件 '%s': %w", path, err)
		}
		raw = data
	}
	return ParseTemplates(raw)
}

// ParseTemplates 解析并校验YAML格式的模板。
func ParseTemplates(raw []byte) (*TemplateSet, error) {
	var set TemplateSet
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("无法解析八卦模板: %w", err)
	}
	if err := set.validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

func (t *TemplateSet) validate() error {
	if len(t.Default.Templates) == 0 {
		return fmt.Errorf("八卦模板缺少 default 文本")
	}
	if !t.Default.Severity.Valid() {
		t.Default.Severity = DefaultSeverity
	}
	for signal, pool := range t.Signals {
		if len(pool.Templates) == 0 {
			return fmt.Errorf("信号 '%s' 没有任何模板文本", signal)
		}
		if pool.Severity != "" && !pool.Severity.Valid() {
			return fmt.Errorf("信号 '%s' 的严重程度 '%s' 无效", signal, pool.Severity)
		}
	}
	return nil
}

// severityOf 返回信号的严重程度，未登记时回退到 default 的严重程度。
func (t *TemplateSet) severityOf(signal Signal) Severity {
	if pool, ok := t.Signals[signal]; ok && pool.Severity.Valid() {
		return pool.Severity
	}
	if t.Default.Severity.Valid() {
		return t.Default.Severity
	}
	return DefaultSeverity
}

// poolOf 返回信号的候选文本，未登记时使用 default。
func (t *TemplateSet) poolOf(signal Signal) []string {
	if pool, ok := t.Signals[signal]; ok && len(pool.Templates) > 0 {
		return pool.Templates
	}
	return t.Default.Templates
}
