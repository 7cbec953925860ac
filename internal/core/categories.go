package core

// DefaultCategories is the registry seed used when no category exists yet.
// Order matters: the first entry of each type is the default selection.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Gaji", Type: Income},
		{Name: "Bonus", Type: Income},
		{Name: "Hadiah", Type: Income},
		{Name: "Pemasukan Lain", Type: Income},

		{Name: "Makan", Type: Expense},
		{Name: "Transportasi", Type: Expense},
		{Name: "Belanja", Type: Expense},
		{Name: "Tagihan", Type: Expense},
		{Name: "Hiburan", Type: Expense},
		{Name: "Kesehatan", Type: Expense},
		{Name: "Pendidikan", Type: Expense},
		{Name: "Pengeluaran Lain", Type: Expense},

		{Name: "Dana Darurat", Type: Expense, IsSavings: true},
		{Name: "Investasi", Type: Expense, IsSavings: true},
		{Name: "Tabungan", Type: Expense, IsSavings: true},
	}
}
