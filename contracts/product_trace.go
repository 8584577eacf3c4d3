package contracts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// ProductTraceContract manages the product lifecycle: creation, custody
// transfer, location/telemetry updates, processing into derived products
// and certification.
type ProductTraceContract struct {
	contractapi.Contract
}

// History actions.
const (
	actionHistoryCreated       = "CREATED"
	actionHistoryTransferred   = "OWNERSHIP_TRANSFERRED"
	actionHistoryLocation      = "LOCATION_UPDATED"
	actionHistoryProcessed     = "PROCESSED"
	actionHistoryCertification = "CERTIFICATION_ADDED"
)

// Event names.
const (
	eventProductCreated       = "ProductCreated"
	eventOwnershipTransferred = "OwnershipTransferred"
)

// transferableStatuses lists the statuses a product may be transferred
// from. PROCESSED inputs are consumed and SOLD goods have left the chain;
// neither can change custody.
var transferableStatuses = map[ProductStatus]bool{
	ProductStatusCreated:     true,
	ProductStatusTransferred: true,
	ProductStatusInTransit:   true,
	ProductStatusAtRetailer:  true,
	ProductStatusPackaged:    true,
}

// statusAllowsHandling reports whether a product can still move through the
// chain (location updates, processing inputs).
func statusAllowsHandling(s ProductStatus) bool {
	return s != ProductStatusProcessed && s != ProductStatusSold
}

// txTimestamp returns the transaction timestamp as RFC3339. Lifecycle logic
// never reads the wall clock: every endorser must derive the identical
// record from the identical transaction.
func txTimestamp(ctx contractapi.TransactionContextInterface) (string, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return "", fmt.Errorf("failed to get transaction timestamp: %v", err)
	}
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC().Format(time.RFC3339), nil
}

func getProductState(stub shim.ChaincodeStubInterface, productID string) (*Product, error) {
	raw, err := stub.GetState(productID)
	if err != nil {
		return nil, fmt.Errorf("failed to read product %s: %v", productID, err)
	}
	if raw == nil {
		return nil, notFoundf("product %s does not exist", productID)
	}
	var product Product
	if err := json.Unmarshal(raw, &product); err != nil {
		return nil, fmt.Errorf("failed to decode product %s: %v", productID, err)
	}
	return &product, nil
}

func putProductState(stub shim.ChaincodeStubInterface, p *Product) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode product %s: %v", p.ProductID, err)
	}
	return stub.PutState(p.ProductID, raw)
}

func emitEvent(stub shim.ChaincodeStubInterface, name string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %v", name, err)
	}
	return stub.SetEvent(name, raw)
}

// InitLedger seeds the demo product the network bootstrap scripts expect.
func (t *ProductTraceContract) InitLedger(ctx contractapi.TransactionContextInterface) error {
	stub := ctx.GetStub()
	product := &Product{
		ProductID:    "PROD000001",
		ProductName:  "Organic Tomatoes",
		ProductType:  "vegetable",
		CurrentOwner: "farmer01",
		Quantity:     1000,
		Unit:         "kg",
		Status:       ProductStatusCreated,
		Location:     "Green Valley Farms, California",
		HarvestDate:  "2024-01-15",
		CreatedAt:    "2024-01-15T08:00:00Z",
		Certifications: []Certification{
			{
				Type:              "USDA Organic",
				CertificationBody: "USDA",
				IssuedDate:        "2024-01-10",
				ExpiryDate:        "2025-01-10",
			},
		},
		History: []HistoryEntry{
			{
				Action:    actionHistoryCreated,
				Timestamp: "2024-01-15T08:00:00Z",
				Actor:     "farmer01",
				Details:   "Product created by farmer",
			},
		},
	}
	if err := putProductState(stub, product); err != nil {
		return err
	}
	if err := putProductIndexes(stub, product); err != nil {
		return err
	}
	// The seeded product occupies counter slot 1.
	return stub.PutState(productCounterKey, []byte("2"))
}

type createProductArgs struct {
	ProductName    string          `json:"productName"`
	ProductType    string          `json:"productType"`
	Quantity       float64         `json:"quantity"`
	Unit           string          `json:"unit"`
	HarvestDate    string          `json:"harvestDate"`
	Location       string          `json:"location"`
	Certifications []Certification `json:"certifications"`
}

// CreateProduct registers a new product with the caller as its first owner.
// Only farmers and manufacturers may create products.
func (t *ProductTraceContract) CreateProduct(ctx contractapi.TransactionContextInterface,
	argsJSON string) (*CreateProductResult, error) {

	var args createProductArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return nil, validationf("invalid createProduct arguments: %v", err)
	}
	if args.ProductName == "" {
		return nil, validationf("productName is required")
	}
	if args.ProductType == "" {
		return nil, validationf("productType is required")
	}
	if args.Quantity <= 0 {
		return nil, validationf("quantity must be positive")
	}
	if args.Location == "" {
		return nil, validationf("location is required")
	}

	caller, role, err := requireAction(ctx, actionCreateProduct)
	if err != nil {
		return nil, err
	}

	product, err := t.createProductRecord(ctx, caller, role, args, nil)
	if err != nil {
		return nil, err
	}
	return &CreateProductResult{Success: true, ProductID: product.ProductID}, nil
}

// createProductRecord is the shared create path used by CreateProduct and
// ProcessProduct. It allocates the ID, writes the record, files the four
// indexes and emits the creation event, all within the caller's transaction.
func (t *ProductTraceContract) createProductRecord(ctx contractapi.TransactionContextInterface,
	caller string, role Role, args createProductArgs, inputProducts []string) (*Product, error) {

	stub := ctx.GetStub()
	now, err := txTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	productID, err := nextProductID(stub)
	if err != nil {
		return nil, err
	}

	unit := args.Unit
	if unit == "" {
		unit = "kg"
	}
	harvestDate := args.HarvestDate
	if harvestDate == "" {
		harvestDate = now
	}
	certifications := args.Certifications
	if certifications == nil {
		certifications = []Certification{}
	}

	product := &Product{
		ProductID:      productID,
		ProductName:    args.ProductName,
		ProductType:    args.ProductType,
		CurrentOwner:   caller,
		Quantity:       args.Quantity,
		Unit:           unit,
		Status:         ProductStatusCreated,
		Location:       args.Location,
		HarvestDate:    harvestDate,
		CreatedAt:      now,
		Certifications: certifications,
		InputProducts:  inputProducts,
		History: []HistoryEntry{
			{
				Action:    actionHistoryCreated,
				Timestamp: now,
				Actor:     caller,
				Details:   fmt.Sprintf("Product created by %s", role),
			},
		},
	}

	if err := putProductState(stub, product); err != nil {
		return nil, err
	}
	if err := putProductIndexes(stub, product); err != nil {
		return nil, err
	}
	if err := emitEvent(stub, eventProductCreated, map[string]string{
		"productId": productID,
		"owner":     caller,
	}); err != nil {
		return nil, err
	}
	return product, nil
}

type transferOwnershipArgs struct {
	ProductID  string  `json:"productId"`
	NewOwnerID string  `json:"newOwnerId"`
	Price      float64 `json:"price"`
	Notes      string  `json:"notes"`
}

// TransferOwnership hands custody of a product to a new owner. Only the
// current owner may transfer, and only while the product is still in the
// chain (not PROCESSED or SOLD).
func (t *ProductTraceContract) TransferOwnership(ctx contractapi.TransactionContextInterface,
	argsJSON string) (*TxResult, error) {

	var args transferOwnershipArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return nil, validationf("invalid transferOwnership arguments: %v", err)
	}
	if args.ProductID == "" {
		return nil, validationf("productId is required")
	}
	if args.NewOwnerID == "" {
		return nil, validationf("newOwnerId is required")
	}

	stub := ctx.GetStub()
	product, err := getProductState(stub, args.ProductID)
	if err != nil {
		return nil, err
	}
	caller, err := requireOwner(ctx, product)
	if err != nil {
		return nil, err
	}
	if !transferableStatuses[product.Status] {
		return nil, validationf("product %s cannot be transferred in status %s", product.ProductID, product.Status)
	}

	now, err := txTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	previousOwner := product.CurrentOwner
	previousStatus := product.Status

	product.History = append(product.History, HistoryEntry{
		Action:    actionHistoryTransferred,
		Timestamp: now,
		Actor:     caller,
		Details: map[string]interface{}{
			"from":  previousOwner,
			"to":    args.NewOwnerID,
			"price": args.Price,
			"notes": args.Notes,
		},
	})
	product.CurrentOwner = args.NewOwnerID
	product.Status = ProductStatusTransferred

	if err := putProductState(stub, product); err != nil {
		return nil, err
	}
	if err := indexMove(stub, ownerProductIndex, previousOwner, product.CurrentOwner, product.ProductID); err != nil {
		return nil, err
	}
	if err := indexMove(stub, statusProductIndex, string(previousStatus), string(product.Status), product.ProductID); err != nil {
		return nil, err
	}
	if err := emitEvent(stub, eventOwnershipTransferred, map[string]string{
		"productId": product.ProductID,
		"from":      previousOwner,
		"to":        args.NewOwnerID,
	}); err != nil {
		return nil, err
	}
	return &TxResult{Success: true, Message: "Ownership transferred successfully"}, nil
}

type updateLocationArgs struct {
	ProductID   string   `json:"productId"`
	Location    string   `json:"location"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// UpdateLocation records a product's current location and optional
// environmental telemetry. Only shippers and distributors update locations.
func (t *ProductTraceContract) UpdateLocation(ctx contractapi.TransactionContextInterface,
	argsJSON string) (*TxResult, error) {

	var args updateLocationArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return nil, validationf("invalid updateLocation arguments: %v", err)
	}
	if args.ProductID == "" {
		return nil, validationf("productId is required")
	}
	if args.Location == "" {
		return nil, validationf("location is required")
	}

	caller, _, err := requireAction(ctx, actionUpdateLocation)
	if err != nil {
		return nil, err
	}

	stub := ctx.GetStub()
	product, err := getProductState(stub, args.ProductID)
	if err != nil {
		return nil, err
	}
	if !statusAllowsHandling(product.Status) {
		return nil, validationf("product %s cannot be moved in status %s", product.ProductID, product.Status)
	}

	now, err := txTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	previousLocation := product.Location
	previousStatus := product.Status

	product.Location = args.Location
	if args.Temperature != nil {
		product.Temperature = args.Temperature
	}
	if args.Humidity != nil {
		product.Humidity = args.Humidity
	}
	product.Status = ProductStatusInTransit
	product.History = append(product.History, HistoryEntry{
		Action:    actionHistoryLocation,
		Timestamp: now,
		Actor:     caller,
		Details: map[string]interface{}{
			"location":    args.Location,
			"temperature": args.Temperature,
			"humidity":    args.Humidity,
		},
	})

	if err := putProductState(stub, product); err != nil {
		return nil, err
	}
	if err := indexMove(stub, locationProductIndex, previousLocation, product.Location, product.ProductID); err != nil {
		return nil, err
	}
	if err := indexMove(stub, statusProductIndex, string(previousStatus), string(product.Status), product.ProductID); err != nil {
		return nil, err
	}
	return &TxResult{Success: true, Message: "Location updated successfully"}, nil
}

type processProductArgs struct {
	InputProductIDs   []string `json:"inputProductIds"`
	OutputProductName string   `json:"outputProductName"`
	OutputQuantity    float64  `json:"outputQuantity"`
	ProcessingDetails string   `json:"processingDetails"`
}

// ProcessProduct consumes a set of owned input products and creates a
// derived output in the same transaction. Every input is loaded and
// authorization-checked before the first write, so a failure on any input
// leaves the ledger untouched.
func (t *ProductTraceContract) ProcessProduct(ctx contractapi.TransactionContextInterface,
	argsJSON string) (*CreateProductResult, error) {

	var args processProductArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return nil, validationf("invalid processProduct arguments: %v", err)
	}
	if len(args.InputProductIDs) == 0 {
		return nil, validationf("inputProductIds must not be empty")
	}
	if args.OutputProductName == "" {
		return nil, validationf("outputProductName is required")
	}
	if args.OutputQuantity <= 0 {
		return nil, validationf("outputQuantity must be positive")
	}

	caller, role, err := requireAction(ctx, actionProcessProduct)
	if err != nil {
		return nil, err
	}

	stub := ctx.GetStub()

	// Validate every input before mutating anything.
	inputs := make([]*Product, 0, len(args.InputProductIDs))
	for _, inputID := range args.InputProductIDs {
		product, err := getProductState(stub, inputID)
		if err != nil {
			return nil, err
		}
		if product.CurrentOwner != caller {
			return nil, unauthorizedf("caller does not own input product %s", inputID)
		}
		if !statusAllowsHandling(product.Status) {
			return nil, validationf("input product %s cannot be processed in status %s", inputID, product.Status)
		}
		inputs = append(inputs, product)
	}

	now, err := txTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	for _, product := range inputs {
		previousStatus := product.Status
		product.Status = ProductStatusProcessed
		product.History = append(product.History, HistoryEntry{
			Action:    actionHistoryProcessed,
			Timestamp: now,
			Actor:     caller,
			Details:   args.ProcessingDetails,
		})
		if err := putProductState(stub, product); err != nil {
			return nil, err
		}
		if err := indexMove(stub, statusProductIndex, string(previousStatus), string(product.Status), product.ProductID); err != nil {
			return nil, err
		}
	}

	output, err := t.createProductRecord(ctx, caller, role, createProductArgs{
		ProductName: args.OutputProductName,
		ProductType: "processed",
		Quantity:    args.OutputQuantity,
		Unit:        "units",
		Location:    "Manufacturing facility",
	}, args.InputProductIDs)
	if err != nil {
		return nil, err
	}
	return &CreateProductResult{Success: true, ProductID: output.ProductID}, nil
}

type addCertificationArgs struct {
	ProductID         string `json:"productId"`
	CertificationType string `json:"certificationType"`
	CertificationBody string `json:"certificationBody"`
	ExpiryDate        string `json:"expiryDate"`
	Details           string `json:"details"`
}

// AddCertification attaches a certification to a product. Only the current
// owner may certify; certifications are not indexed.
func (t *ProductTraceContract) AddCertification(ctx contractapi.TransactionContextInterface,
	argsJSON string) (*TxResult, error) {

	var args addCertificationArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return nil, validationf("invalid addCertification arguments: %v", err)
	}
	if args.ProductID == "" {
		return nil, validationf("productId is required")
	}
	if args.CertificationType == "" {
		return nil, validationf("certificationType is required")
	}
	if args.CertificationBody == "" {
		return nil, validationf("certificationBody is required")
	}

	stub := ctx.GetStub()
	product, err := getProductState(stub, args.ProductID)
	if err != nil {
		return nil, err
	}
	caller, err := requireOwner(ctx, product)
	if err != nil {
		return nil, err
	}
	if product.Status == ProductStatusProcessed {
		return nil, validationf("product %s is already consumed and cannot be certified", product.ProductID)
	}

	now, err := txTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	certification := Certification{
		Type:              args.CertificationType,
		CertificationBody: args.CertificationBody,
		IssuedDate:        now,
		ExpiryDate:        args.ExpiryDate,
		Details:           args.Details,
	}
	product.Certifications = append(product.Certifications, certification)
	product.History = append(product.History, HistoryEntry{
		Action:    actionHistoryCertification,
		Timestamp: now,
		Actor:     caller,
		Details:   certification,
	})

	if err := putProductState(stub, product); err != nil {
		return nil, err
	}
	return &TxResult{Success: true, Message: "Certification added successfully"}, nil
}

type deleteProductArgs struct {
	ProductID string `json:"productId"`
}

// DeleteProduct removes a product record and all of its index entries.
// Admin-only cleanup; normal lifecycle never deletes.
func (t *ProductTraceContract) DeleteProduct(ctx contractapi.TransactionContextInterface,
	argsJSON string) (*TxResult, error) {

	var args deleteProductArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return nil, validationf("invalid deleteProduct arguments: %v", err)
	}
	if args.ProductID == "" {
		return nil, validationf("productId is required")
	}

	if _, _, err := requireAction(ctx, actionDeleteProduct); err != nil {
		return nil, err
	}

	stub := ctx.GetStub()
	product, err := getProductState(stub, args.ProductID)
	if err != nil {
		return nil, err
	}
	if err := delProductIndexes(stub, product); err != nil {
		return nil, err
	}
	if err := stub.DelState(product.ProductID); err != nil {
		return nil, fmt.Errorf("failed to delete product %s: %v", product.ProductID, err)
	}
	return &TxResult{Success: true, Message: "Product deleted successfully"}, nil
}
