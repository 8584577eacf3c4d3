package contracts

// Product is the central traceability record. The productId is assigned once
// at creation and never reused; every mutating transaction appends exactly
// one history entry alongside its state change.
type Product struct {
	ProductID      string          `json:"productId"`
	ProductName    string          `json:"productName"`
	ProductType    string          `json:"productType"`
	CurrentOwner   string          `json:"currentOwner"`
	Quantity       float64         `json:"quantity"`
	Unit           string          `json:"unit"`
	Status         ProductStatus   `json:"status"`
	Location       string          `json:"location"`
	Temperature    *float64        `json:"temperature"`
	Humidity       *float64        `json:"humidity"`
	HarvestDate    string          `json:"harvestDate"`
	CreatedAt      string          `json:"createdAt"`
	Certifications []Certification `json:"certifications"`
	InputProducts  []string        `json:"inputProducts,omitempty"`
	History        []HistoryEntry  `json:"history"`
}

// Certification is an attestation attached to a product (organic, halal,
// cold-chain audit, ...). Certifications are append-only.
type Certification struct {
	Type              string `json:"type"`
	CertificationBody string `json:"certificationBody"`
	IssuedDate        string `json:"issuedDate"`
	ExpiryDate        string `json:"expiryDate,omitempty"`
	Details           string `json:"details,omitempty"`
}

// HistoryEntry is one event in a product's audit trail. Details carries the
// action-specific payload: a string for CREATED, an object for transfers,
// location updates and certifications.
type HistoryEntry struct {
	Action    string      `json:"action"`
	Timestamp string      `json:"timestamp"`
	Actor     string      `json:"actor"`
	Details   interface{} `json:"details,omitempty"`
}

// Participant is a registered supply chain identity. The role is fixed at
// registration; there is no role-change transaction.
type Participant struct {
	ParticipantID    string            `json:"participantId"`
	Role             Role              `json:"role"`
	OrganizationName string            `json:"organizationName"`
	Location         string            `json:"location"`
	Contact          string            `json:"contact,omitempty"`
	RegisteredDate   string            `json:"registeredDate"`
	Status           ParticipantStatus `json:"status"`
}

// ProductStatus values. There is no generic status-set transaction; each
// lifecycle operation sets the status it stands for.
type ProductStatus string

const (
	ProductStatusCreated     ProductStatus = "CREATED"
	ProductStatusInTransit   ProductStatus = "IN_TRANSIT"
	ProductStatusTransferred ProductStatus = "TRANSFERRED"
	ProductStatusProcessed   ProductStatus = "PROCESSED"
	ProductStatusAtRetailer  ProductStatus = "AT_RETAILER"
	ProductStatusPackaged    ProductStatus = "PACKAGED"
	ProductStatusSold        ProductStatus = "SOLD"
)

// Role is the closed set of participant roles carried as the "role"
// certificate attribute.
type Role string

const (
	RoleFarmer       Role = "farmer"
	RoleManufacturer Role = "manufacturer"
	RoleDistributor  Role = "distributor"
	RoleRetailer     Role = "retailer"
	RoleShipper      Role = "shipper"
	RoleAdmin        Role = "admin"
)

// ParseRole maps an attribute value onto the closed role set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleFarmer, RoleManufacturer, RoleDistributor, RoleRetailer, RoleShipper, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

type ParticipantStatus string

const (
	ParticipantStatusActive   ParticipantStatus = "ACTIVE"
	ParticipantStatusInactive ParticipantStatus = "INACTIVE"
)

// CreateProductResult is returned by CreateProduct and ProcessProduct.
type CreateProductResult struct {
	Success   bool   `json:"success"`
	ProductID string `json:"productId"`
}

// TxResult is returned by transactions that do not allocate an ID.
type TxResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CreateParticipantResult is returned by CreateParticipant.
type CreateParticipantResult struct {
	Success       bool   `json:"success"`
	ParticipantID string `json:"participantId"`
}

// KeyModificationRecord is one committed version of a product as reported by
// the ledger's per-key history, oldest first.
type KeyModificationRecord struct {
	TxID      string   `json:"txId"`
	Timestamp string   `json:"timestamp"`
	IsDelete  bool     `json:"isDelete"`
	Value     *Product `json:"value,omitempty"`
}

// SupplyChainAnalytics aggregates the full product set. The period counters
// only consider history entries (or createdAt) inside [periodStart,
// periodEnd]; the averages cover all non-null readings and stay null when no
// product carries telemetry.
type SupplyChainAnalytics struct {
	TotalProducts           int            `json:"totalProducts"`
	ProductsByStatus        map[string]int `json:"productsByStatus"`
	ProductsByType          map[string]int `json:"productsByType"`
	ProductsByOwner         map[string]int `json:"productsByOwner"`
	TotalActiveOwners       int            `json:"totalActiveOwners"`
	TotalCertifications     int            `json:"totalCertifications"`
	ProductsCreatedInPeriod int            `json:"productsCreatedInPeriod"`
	TransfersInPeriod       int            `json:"transfersInPeriod"`
	LocationUpdatesInPeriod int            `json:"locationUpdatesInPeriod"`
	AverageTemperature      *float64       `json:"averageTemperature"`
	AverageHumidity         *float64       `json:"averageHumidity"`
	PeriodStart             string         `json:"periodStart"`
	PeriodEnd               string         `json:"periodEnd"`
}

// OwnershipLink is one step of a product's custody chain, derived from the
// CREATED and OWNERSHIP_TRANSFERRED history entries.
type OwnershipLink struct {
	Owner string `json:"owner"`
	Since string `json:"since"`
}

// VerificationResult is the public, unauthenticated view of a product used
// by end consumers. A missing product yields Verified=false with a reason
// rather than an error.
type VerificationResult struct {
	Verified       bool            `json:"verified"`
	ProductID      string          `json:"productId"`
	ProductName    string          `json:"productName,omitempty"`
	ProductType    string          `json:"productType,omitempty"`
	CurrentOwner   string          `json:"currentOwner,omitempty"`
	Status         ProductStatus   `json:"status,omitempty"`
	CreatedAt      string          `json:"createdAt,omitempty"`
	Certifications []Certification `json:"certifications"`
	OwnershipChain []OwnershipLink `json:"ownershipChain"`
	QRCode         string          `json:"qrCode,omitempty"`
	Reason         string          `json:"reason,omitempty"`
}

// PaginatedProducts is the bookmark-paged variant of GetAllProducts.
type PaginatedProducts struct {
	Products     []*Product `json:"products"`
	FetchedCount int32      `json:"fetchedCount"`
	NextBookmark string     `json:"nextBookmark"`
}
