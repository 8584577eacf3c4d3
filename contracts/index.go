package contracts

import (
	"fmt"

	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// Secondary indexes are composite keys {indexName, attributeValue, entityId}
// holding a one-byte sentinel. Because the attribute value is embedded in
// the key, changing an indexed field means deleting the old key and putting
// a new one; indexMove keeps that pairing in one place so a mutation can
// never leave a stale entry behind.
const (
	ownerProductIndex    = "owner~product"
	statusProductIndex   = "status~product"
	typeProductIndex     = "type~product"
	locationProductIndex = "location~product"
	roleParticipantIndex = "role~participant"
)

var indexSentinel = []byte{0x00}

func indexPut(stub shim.ChaincodeStubInterface, name, attr, entityID string) error {
	key, err := stub.CreateCompositeKey(name, []string{attr, entityID})
	if err != nil {
		return fmt.Errorf("failed to create %s index key: %v", name, err)
	}
	return stub.PutState(key, indexSentinel)
}

func indexDel(stub shim.ChaincodeStubInterface, name, attr, entityID string) error {
	key, err := stub.CreateCompositeKey(name, []string{attr, entityID})
	if err != nil {
		return fmt.Errorf("failed to create %s index key: %v", name, err)
	}
	return stub.DelState(key)
}

// indexMove re-points an index entry from oldAttr to newAttr. The delete and
// put land in the same transaction, so no other transaction can observe the
// intermediate state. Equal attributes are a no-op.
func indexMove(stub shim.ChaincodeStubInterface, name, oldAttr, newAttr, entityID string) error {
	if oldAttr == newAttr {
		return nil
	}
	if err := indexDel(stub, name, oldAttr, entityID); err != nil {
		return err
	}
	return indexPut(stub, name, newAttr, entityID)
}

// indexScan returns the entity IDs currently filed under attr.
func indexScan(stub shim.ChaincodeStubInterface, name, attr string) ([]string, error) {
	iter, err := stub.GetStateByPartialCompositeKey(name, []string{attr})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s index: %v", name, err)
	}
	defer iter.Close()

	var ids []string
	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return nil, err
		}
		_, parts, err := stub.SplitCompositeKey(kv.Key)
		if err != nil {
			return nil, err
		}
		// parts is {attributeValue, entityId}
		ids = append(ids, parts[len(parts)-1])
	}
	return ids, nil
}

// putProductIndexes files a product under all four product indexes.
func putProductIndexes(stub shim.ChaincodeStubInterface, p *Product) error {
	for _, entry := range productIndexEntries(p) {
		if err := indexPut(stub, entry.name, entry.attr, p.ProductID); err != nil {
			return err
		}
	}
	return nil
}

// delProductIndexes removes every index entry for the product's current
// attribute tuple.
func delProductIndexes(stub shim.ChaincodeStubInterface, p *Product) error {
	for _, entry := range productIndexEntries(p) {
		if err := indexDel(stub, entry.name, entry.attr, p.ProductID); err != nil {
			return err
		}
	}
	return nil
}

type indexEntry struct {
	name string
	attr string
}

func productIndexEntries(p *Product) []indexEntry {
	return []indexEntry{
		{ownerProductIndex, p.CurrentOwner},
		{statusProductIndex, string(p.Status)},
		{typeProductIndex, p.ProductType},
		{locationProductIndex, p.Location},
	}
}
