// ABOUTME: Built-in sample catalog served by the dev server
// ABOUTME: Mixed-case names and repeated categories exercise sorting and search

package devserver

// Product is the wire form of a catalog entry. Ids are numeric as the production
// catalogue service sends them.
type Product struct {
	ProductID      int    `json:"product_id"`
	ProductName    string `json:"product_name"`
	CompanyName    string `json:"company_name"`
	Website        string `json:"website"`
	Category       string `json:"product_category"`
	CompanyAddress string `json:"company_address"`
}

// SampleProducts returns the default catalog.
func SampleProducts() []Product {
	return []Product{
		{1, "Zeta Router", "Northwind Networks", "https://northwind.example", "Networking", "12 Harbor Rd, Portland"},
		{2, "Alpha Notebook", "Contoso", "https://contoso.example", "Computers", "1 Microsoft Way, Redmond"},
		{3, "beta Keyboard", "Fabrikam", "https://fabrikam.example", "Peripherals", "400 Main St, Austin"},
		{4, "Gamma Monitor 27", "Contoso", "https://contoso.example", "Displays", "1 Microsoft Way, Redmond"},
		{5, "Delta Switch 24", "Northwind Networks", "https://northwind.example", "Networking", "12 Harbor Rd, Portland"},
		{6, "Epsilon Mouse", "Fabrikam", "https://fabrikam.example", "Peripherals", "400 Main St, Austin"},
		{7, "Zeta Access Point", "Northwind Networks", "https://northwind.example", "Networking", "12 Harbor Rd, Portland"},
		{8, "Eta Dock", "Tailspin Toys", "https://tailspin.example", "Peripherals", "88 Runway Ave, Denver"},
		{9, "Theta Tablet", "Adventure Works", "https://adventure-works.example", "Computers", "7 Summit Pl, Boulder"},
		{10, "iota Webcam", "Tailspin Toys", "https://tailspin.example", "Peripherals", "88 Runway Ave, Denver"},
	}
}
