package enums

// Role identifies which side of a trade the caller acts for.
type Role string

const (
	RoleRetailer   Role = "retailer"
	RoleWholesaler Role = "wholesaler"
)

var roles = []Role{RoleRetailer, RoleWholesaler}

func (r Role) String() string { return string(r) }
func (r Role) IsValid() bool  { return known(r, roles) }

func ParseRole(raw string) (Role, error) { return parse("role", raw, roles) }
