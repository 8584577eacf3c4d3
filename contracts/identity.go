package contracts

import (
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// roleAttribute is the certificate attribute the CA stamps onto every
// enrolled identity.
const roleAttribute = "role"

// Actions gated by role. Ownership checks are separate: they compare the
// caller against product.currentOwner, not against a role.
const (
	actionCreateProduct       = "CREATE_PRODUCT"
	actionUpdateLocation      = "UPDATE_LOCATION"
	actionProcessProduct      = "PROCESS_PRODUCT"
	actionDeleteProduct       = "DELETE_PRODUCT"
	actionRegisterParticipant = "REGISTER_PARTICIPANT"
)

// actionRoles is the permission table. A role absent from an action's list
// is rejected outright; there is no warn-and-continue path.
var actionRoles = map[string][]Role{
	actionCreateProduct:       {RoleFarmer, RoleManufacturer},
	actionUpdateLocation:      {RoleShipper, RoleDistributor},
	actionProcessProduct:      {RoleManufacturer},
	actionDeleteProduct:       {RoleAdmin},
	actionRegisterParticipant: {RoleAdmin},
}

// callerID returns the invoking identity's unique client ID.
func callerID(ctx contractapi.TransactionContextInterface) (string, error) {
	id, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %v", err)
	}
	return id, nil
}

// callerRole extracts and parses the caller's role attribute. A missing or
// unknown role is an authorization failure, not a validation one: the
// identity exists but carries no recognized supply chain role.
func callerRole(ctx contractapi.TransactionContextInterface) (Role, error) {
	value, found, err := ctx.GetClientIdentity().GetAttributeValue(roleAttribute)
	if err != nil {
		return "", fmt.Errorf("failed to read role attribute: %v", err)
	}
	if !found {
		return "", unauthorizedf("caller has no role attribute")
	}
	role, ok := ParseRole(value)
	if !ok {
		return "", unauthorizedf("unknown role %q", value)
	}
	return role, nil
}

// requireAction resolves the caller's identity and role and checks the role
// against the permission table before any state is touched.
func requireAction(ctx contractapi.TransactionContextInterface, action string) (string, Role, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return "", "", err
	}
	role, err := callerRole(ctx)
	if err != nil {
		return "", "", err
	}
	for _, allowed := range actionRoles[action] {
		if role == allowed {
			return caller, role, nil
		}
	}
	return "", "", unauthorizedf("role %s is not permitted to perform %s", role, action)
}

// requireOwner verifies the caller holds custody of the product.
func requireOwner(ctx contractapi.TransactionContextInterface, product *Product) (string, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	if product.CurrentOwner != caller {
		return "", unauthorizedf("only the current owner of %s may perform this operation", product.ProductID)
	}
	return caller, nil
}
