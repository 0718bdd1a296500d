package fetcher

// CacheDecision 缓存门决策
type CacheDecision int

const (
	// UseCache 缓存记录可直接返回
	UseCache CacheDecision = iota
	// MustFetch 必须实时抓取
	MustFetch
)

// DecideCache 缓存有效性判定（纯函数，无副作用）
// 规则：
//   - 无缓存记录 → MustFetch
//   - 强制刷新 → MustFetch（状态需要实地观测，金额有效也可能已过期）
//   - 金额无效 → MustFetch
//   - 其余 → UseCache（收货人字段即使为空也原样透传，不参与有效性判定）
func DecideCache(existing *OrderRecord, forceRefresh bool) CacheDecision {
	if existing == nil {
		return MustFetch
	}
	if forceRefresh {
		return MustFetch
	}
	if !AmountValid(existing.Amount) {
		return MustFetch
	}
	return UseCache
}
