package sales

import "sales-dashboard/internal/models"

// AllBranches is the selector sentinel that disables branch filtering. Any
// other value, the empty string included, is matched exactly.
const AllBranches = "Todas"

func IsAllBranches(branch string) bool {
	return branch == AllBranches
}

// FilterByBranch returns the rows of the given branch. The AllBranches
// sentinel returns rows unchanged; an unknown branch yields an empty slice.
func FilterByBranch(rows []models.Transaction, branch string) []models.Transaction {
	if IsAllBranches(branch) {
		return rows
	}
	out := make([]models.Transaction, 0)
	for _, tx := range rows {
		if tx.Branch == branch {
			out = append(out, tx)
		}
	}
	return out
}

// Branches lists the distinct branches in first-seen order.
func Branches(rows []models.Transaction) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, tx := range rows {
		if _, ok := seen[tx.Branch]; ok {
			continue
		}
		seen[tx.Branch] = struct{}{}
		out = append(out, tx.Branch)
	}
	return out
}

// SelectorOptions is the branch selector content: the sentinel followed by
// every branch.
func SelectorOptions(branches []string) []string {
	return append([]string{AllBranches}, branches...)
}

type Group struct {
	Product string
	Rows    []models.Transaction
}

// GroupByProduct splits rows by product, keeping first-seen product order
// and the original row order inside each group.
func GroupByProduct(rows []models.Transaction) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)
	for _, tx := range rows {
		i, ok := index[tx.Product]
		if !ok {
			i = len(groups)
			index[tx.Product] = i
			groups = append(groups, Group{Product: tx.Product})
		}
		groups[i].Rows = append(groups[i].Rows, tx)
	}
	return groups
}
