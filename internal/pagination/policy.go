package pagination

// MaxPageBudget は1回の走査で取得する最大ページ数。
const MaxPageBudget = 10

// legacyItemsPerPage は件数指定から予算を導出するときの1ページあたり想定件数。
const legacyItemsPerPage = 20

// StopPolicy は走査の停止条件。
// TargetItems が0の場合はページ数のみで停止し、取得したページの該当投稿をすべて返す。
type StopPolicy struct {
	PageBudget  int
	TargetItems int
}

// PagePolicy はページ数で停止するポリシーを返す。
// budgetは [1, MaxPageBudget] に丸められる。
func PagePolicy(budget int) StopPolicy {
	return StopPolicy{PageBudget: clampBudget(budget)}
}

// ItemPolicy は該当件数がtargetに達した時点、またはbudgetページ取得後に停止するポリシーを返す。
func ItemPolicy(target, budget int) StopPolicy {
	if target < 1 {
		target = 1
	}
	return StopPolicy{PageBudget: clampBudget(budget), TargetItems: target}
}

// LegacyItemPolicy は件数のみ指定する旧来の呼び出し規約に対応するポリシーを返す。
// 予算は ceil(limit/20)+2 ページ（上限 MaxPageBudget）。
func LegacyItemPolicy(limit int) StopPolicy {
	if limit < 1 {
		limit = 1
	}
	budget := (limit+legacyItemsPerPage-1)/legacyItemsPerPage + 2
	return ItemPolicy(limit, budget)
}

func clampBudget(budget int) int {
	switch {
	case budget < 1:
		return 1
	case budget > MaxPageBudget:
		return MaxPageBudget
	default:
		return budget
	}
}
