package contracts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Read-only accessors. None of these mutate state or indexes; all of them
// run against a committed snapshot.

// GetProduct returns the full product record.
func (t *ProductTraceContract) GetProduct(ctx contractapi.TransactionContextInterface,
	productID string) (*Product, error) {

	if productID == "" {
		return nil, validationf("productId is required")
	}
	return getProductState(ctx.GetStub(), productID)
}

// GetProductHistory returns every committed version of the product,
// oldest first, including deletion markers.
func (t *ProductTraceContract) GetProductHistory(ctx contractapi.TransactionContextInterface,
	productID string) ([]KeyModificationRecord, error) {

	if productID == "" {
		return nil, validationf("productId is required")
	}
	iter, err := ctx.GetStub().GetHistoryForKey(productID)
	if err != nil {
		return nil, fmt.Errorf("failed to read history for %s: %v", productID, err)
	}
	defer iter.Close()

	var history []KeyModificationRecord
	for iter.HasNext() {
		mod, err := iter.Next()
		if err != nil {
			return nil, err
		}
		record := KeyModificationRecord{
			TxID:     mod.TxId,
			IsDelete: mod.IsDelete,
		}
		if mod.Timestamp != nil {
			record.Timestamp = time.Unix(mod.Timestamp.Seconds, int64(mod.Timestamp.Nanos)).UTC().Format(time.RFC3339)
		}
		if !mod.IsDelete {
			var product Product
			if err := json.Unmarshal(mod.Value, &product); err != nil {
				return nil, fmt.Errorf("failed to decode historic value of %s: %v", productID, err)
			}
			record.Value = &product
		}
		history = append(history, record)
	}
	return history, nil
}

// GetAllProducts returns every product record. Product keys share the PROD
// prefix, so the range PROD..PROD~ excludes index entries, participants and
// the counter.
func (t *ProductTraceContract) GetAllProducts(ctx contractapi.TransactionContextInterface) ([]*Product, error) {
	iter, err := ctx.GetStub().GetStateByRange(productIDPrefix, productIDPrefix+"~")
	if err != nil {
		return nil, fmt.Errorf("failed to scan products: %v", err)
	}
	defer iter.Close()

	var products []*Product
	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return nil, err
		}
		var product Product
		if err := json.Unmarshal(kv.Value, &product); err != nil {
			return nil, fmt.Errorf("failed to decode product %s: %v", kv.Key, err)
		}
		products = append(products, &product)
	}
	return products, nil
}

// GetAllProductsPaginated walks the product range one bookmark-delimited
// page at a time. The full scan is O(total ledger size); large networks
// should prefer this entry point.
func (t *ProductTraceContract) GetAllProductsPaginated(ctx contractapi.TransactionContextInterface,
	pageSize int32, bookmark string) (*PaginatedProducts, error) {

	if pageSize <= 0 {
		return nil, validationf("pageSize must be positive")
	}
	iter, metadata, err := ctx.GetStub().GetStateByRangeWithPagination(
		productIDPrefix, productIDPrefix+"~", pageSize, bookmark)
	if err != nil {
		return nil, fmt.Errorf("failed to scan products: %v", err)
	}
	defer iter.Close()

	page := &PaginatedProducts{Products: []*Product{}}
	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return nil, err
		}
		var product Product
		if err := json.Unmarshal(kv.Value, &product); err != nil {
			return nil, fmt.Errorf("failed to decode product %s: %v", kv.Key, err)
		}
		page.Products = append(page.Products, &product)
	}
	if metadata != nil {
		page.FetchedCount = metadata.FetchedRecordsCount
		page.NextBookmark = metadata.Bookmark
	}
	return page, nil
}

// GetProductsByOwner returns all products currently owned by ownerID.
func (t *ProductTraceContract) GetProductsByOwner(ctx contractapi.TransactionContextInterface,
	ownerID string) ([]*Product, error) {
	return t.productsByIndex(ctx, ownerProductIndex, ownerID)
}

// GetProductsByStatus returns all products in the given status.
func (t *ProductTraceContract) GetProductsByStatus(ctx contractapi.TransactionContextInterface,
	status string) ([]*Product, error) {
	return t.productsByIndex(ctx, statusProductIndex, status)
}

// GetProductsByType returns all products of the given type.
func (t *ProductTraceContract) GetProductsByType(ctx contractapi.TransactionContextInterface,
	productType string) ([]*Product, error) {
	return t.productsByIndex(ctx, typeProductIndex, productType)
}

// GetProductsByLocation returns all products at the given location.
func (t *ProductTraceContract) GetProductsByLocation(ctx contractapi.TransactionContextInterface,
	location string) ([]*Product, error) {
	return t.productsByIndex(ctx, locationProductIndex, location)
}

func (t *ProductTraceContract) productsByIndex(ctx contractapi.TransactionContextInterface,
	indexName, attr string) ([]*Product, error) {

	if attr == "" {
		return nil, validationf("attribute value is required")
	}
	stub := ctx.GetStub()
	ids, err := indexScan(stub, indexName, attr)
	if err != nil {
		return nil, err
	}
	products := make([]*Product, 0, len(ids))
	for _, id := range ids {
		product, err := getProductState(stub, id)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}

// VerifyProduct is the public provenance check: it never consults the
// client identity, so unauthenticated consumers can call it. The qrCode is
// echoed back for the caller's convenience; it is not validated against the
// ledger record. An unknown product yields verified=false, not an error.
func (t *ProductTraceContract) VerifyProduct(ctx contractapi.TransactionContextInterface,
	productID string, qrCode string) (*VerificationResult, error) {

	if productID == "" {
		return nil, validationf("productId is required")
	}
	raw, err := ctx.GetStub().GetState(productID)
	if err != nil {
		return nil, fmt.Errorf("failed to read product %s: %v", productID, err)
	}
	if raw == nil {
		return &VerificationResult{
			Verified:       false,
			ProductID:      productID,
			Certifications: []Certification{},
			OwnershipChain: []OwnershipLink{},
			Reason:         "Product not found on the ledger",
		}, nil
	}

	var product Product
	if err := json.Unmarshal(raw, &product); err != nil {
		return nil, fmt.Errorf("failed to decode product %s: %v", productID, err)
	}

	certifications := product.Certifications
	if certifications == nil {
		certifications = []Certification{}
	}

	return &VerificationResult{
		Verified:       true,
		ProductID:      product.ProductID,
		ProductName:    product.ProductName,
		ProductType:    product.ProductType,
		CurrentOwner:   product.CurrentOwner,
		Status:         product.Status,
		CreatedAt:      product.CreatedAt,
		Certifications: certifications,
		OwnershipChain: ownershipChain(&product),
		QRCode:         qrCode,
	}, nil
}

// ownershipChain reconstructs the custody sequence from the audit trail.
func ownershipChain(product *Product) []OwnershipLink {
	chain := []OwnershipLink{}
	for _, entry := range product.History {
		switch entry.Action {
		case actionHistoryCreated:
			chain = append(chain, OwnershipLink{Owner: entry.Actor, Since: entry.Timestamp})
		case actionHistoryTransferred:
			details, ok := entry.Details.(map[string]interface{})
			if !ok {
				continue
			}
			to, ok := details["to"].(string)
			if !ok {
				continue
			}
			chain = append(chain, OwnershipLink{Owner: to, Since: entry.Timestamp})
		}
	}
	return chain
}
