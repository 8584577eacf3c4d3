package main

import (
	"os"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/sirupsen/logrus"

	"github.com/product-trace/chaincode/product-trace/contracts"
)

func main() {
	chaincode, err := contractapi.NewChaincode(
		&contracts.ProductTraceContract{},
		&contracts.ParticipantContract{},
	)
	if err != nil {
		logrus.WithError(err).Fatal("creating product trace chaincode")
	}

	// Run as an external chaincode service when an address is configured,
	// otherwise as a regular peer-launched chaincode.
	if address := os.Getenv("CHAINCODE_SERVER_ADDRESS"); address != "" {
		server := &shim.ChaincodeServer{
			CCID:    os.Getenv("CHAINCODE_ID"),
			Address: address,
			CC:      chaincode,
			TLSProps: shim.TLSProperties{
				Disabled: true,
			},
		}
		logrus.WithFields(logrus.Fields{
			"address": address,
			"ccid":    server.CCID,
		}).Info("starting product trace chaincode as external service")
		if err := server.Start(); err != nil {
			logrus.WithError(err).Fatal("starting product trace chaincode server")
		}
		return
	}

	if err := chaincode.Start(); err != nil {
		logrus.WithError(err).Fatal("starting product trace chaincode")
	}
}
