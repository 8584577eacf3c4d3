package contracts

import (
	"fmt"
	"strconv"

	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// The product ID counter is a single ledger key holding a decimal string.
// Every create contends on it: two concurrent creates that read the same
// value conflict at commit and exactly one survives, which is what makes
// the IDs deterministic across endorsers. Do not replace this with a
// timestamp or random source.
const (
	productCounterKey = "productCounter"
	productIDPrefix   = "PROD"
)

// nextProductID reads the counter, formats the next ID and writes the
// incremented counter back. Both writes commit with the entity that uses
// the ID, so an aborted transaction leaves no gap.
func nextProductID(stub shim.ChaincodeStubInterface) (string, error) {
	raw, err := stub.GetState(productCounterKey)
	if err != nil {
		return "", fmt.Errorf("failed to read product counter: %v", err)
	}
	next := 1
	if raw != nil {
		next, err = strconv.Atoi(string(raw))
		if err != nil {
			return "", fmt.Errorf("corrupt product counter %q: %v", raw, err)
		}
	}
	if err := stub.PutState(productCounterKey, []byte(strconv.Itoa(next+1))); err != nil {
		return "", fmt.Errorf("failed to advance product counter: %v", err)
	}
	return fmt.Sprintf("%s%06d", productIDPrefix, next), nil
}
