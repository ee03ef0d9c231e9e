package metadata

// 元数据表中使用的键
const (
	// LastGossipEditionKey 最近一批八卦的期号 (YYYY-MM-DD)
	LastGossipEditionKey = "last_gossip_edition"
	// LastGossipGeneratedAtKey 最近一次生成完成的时间 (RFC3339)
	LastGossipGeneratedAtKey = "last_gossip_generated_at"
)
