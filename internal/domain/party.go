package domain

// UserRole is the permission level of a back-office user.
type UserRole string

// UserType distinguishes administrators from party (vendor/employee) users.
type UserType string

// PartyType distinguishes suppliers from employees.
type PartyType string

// EmploymentStatus applies to employee parties.
type EmploymentStatus string

const (
	RoleRead  UserRole = "READ"
	RoleWrite UserRole = "WRITE"
	RoleAdmin UserRole = "ADMIN"

	UserTypeAdministrator UserType = "ADMINISTRATOR"
	UserTypeParty         UserType = "PARTY"

	PartyTypeEmployee PartyType = "EMPLOYEE"
	PartyTypeSupplier PartyType = "SUPPLIER"
)

// CompanyRef is the short company reference embedded in a user.
type CompanyRef struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// User is the authenticated account.
type User struct {
	ID        string      `json:"id" yaml:"id"`
	Email     string      `json:"email" yaml:"email"`
	Name      *string     `json:"name" yaml:"name"`
	CompanyID *string     `json:"companyId" yaml:"company_id"`
	Role      *UserRole   `json:"role" yaml:"role"`
	Type      UserType    `json:"type" yaml:"type"`
	IsActive  bool        `json:"isActive" yaml:"is_active"`
	CreatedAt string      `json:"createdAt" yaml:"created_at"`
	UpdatedAt string      `json:"updatedAt" yaml:"updated_at"`
	Company   *CompanyRef `json:"company,omitempty" yaml:"company,omitempty"`
}

// HasCompany reports whether the user is associated with a company.
func (u *User) HasCompany() bool {
	return u != nil && u.CompanyID != nil && *u.CompanyID != ""
}

// Company is the business the user belongs to.
type Company struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	CompanySize *string `json:"companySize" yaml:"company_size"`
	CreatedAt   string  `json:"createdAt" yaml:"created_at"`
	UpdatedAt   string  `json:"updatedAt" yaml:"updated_at"`
}

// Party is the vendor or employee profile of a user.
type Party struct {
	ID          string            `json:"id" yaml:"id"`
	PartyType   PartyType         `json:"partyType" yaml:"party_type"`
	TaxID       string            `json:"taxId" yaml:"tax_id"`
	TaxIDType   TaxIDType         `json:"taxIdType" yaml:"tax_id_type"`
	Name        string            `json:"name" yaml:"name"`
	Email       *string           `json:"email" yaml:"email"`
	Address     *string           `json:"address" yaml:"address"`
	Category    *string           `json:"category" yaml:"category"`
	Status      *EmploymentStatus `json:"status" yaml:"status"`
	Regimen     *Regimen          `json:"regimen" yaml:"regimen"`
	IsOnboarded bool              `json:"isOnboarded" yaml:"is_onboarded"`
	CreatedAt   string            `json:"createdAt" yaml:"created_at"`
	UpdatedAt   string            `json:"updatedAt" yaml:"updated_at"`
}

// BankAccount is a payout account of the current party.
type BankAccount struct {
	ID            string  `json:"id" yaml:"id"`
	BankName      *string `json:"bankName" yaml:"bank_name"`
	AccountNumber *string `json:"accountNumber" yaml:"account_number"`
	IsPrimary     bool    `json:"isPrimary" yaml:"is_primary"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns *p or "" when p is nil.
func Deref[T ~string](p *T) T {
	if p == nil {
		return ""
	}
	return *p
}
