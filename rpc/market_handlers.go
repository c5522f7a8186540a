package rpc

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"fytemarket/market"
	"fytemarket/token"
)

func parseAddress(value string) ([20]byte, error) {
	if !common.IsHexAddress(value) {
		return [20]byte{}, fmt.Errorf("invalid address %q", value)
	}
	return common.HexToAddress(value), nil
}

type listingResult struct {
	ID              uint64          `json:"id"`
	Type            uint8           `json:"type"`
	TypeName        string          `json:"typeName"`
	Price           *big.Int        `json:"price"`
	TotalEntrants   uint64          `json:"totalEntrants"`
	CurrentEntrants uint64          `json:"currentEntrants"`
	Remaining       uint64          `json:"remaining"`
	Metadata        market.Metadata `json:"metadata"`
	CreatedAt       int64           `json:"createdAt"`
	Active          bool            `json:"active"`
}

func listingResultFrom(listing *market.Listing, active bool) listingResult {
	return listingResult{
		ID:              listing.ID,
		Type:            uint8(listing.Type),
		TypeName:        listing.Type.String(),
		Price:           listing.Price,
		TotalEntrants:   listing.TotalEntrants,
		CurrentEntrants: listing.CurrentEntrants,
		Remaining:       listing.Remaining(),
		Metadata:        listing.Metadata,
		CreatedAt:       listing.CreatedAt,
		Active:          active,
	}
}

type listParams struct {
	Caller        string          `json:"caller"`
	Type          uint8           `json:"type"`
	Metadata      market.Metadata `json:"metadata"`
	Price         *big.Int        `json:"price"`
	TotalEntrants uint64          `json:"totalEntrants"`
}

func (s *Server) handleMarketList(req *RPCRequest) (interface{}, *RPCError) {
	var params listParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	id, err := s.engine.List(caller, market.ListingType(params.Type), params.Metadata, params.Price, params.TotalEntrants)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]uint64{"id": id}, nil
}

type listingIDParams struct {
	Caller string `json:"caller"`
	ID     uint64 `json:"id"`
}

func (s *Server) handleMarketClose(req *RPCRequest) (interface{}, *RPCError) {
	var params listingIDParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.engine.Close(caller, params.ID); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"closed": true}, nil
}

func (s *Server) handleMarketDelete(req *RPCRequest) (interface{}, *RPCError) {
	var params listingIDParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.engine.Delete(caller, params.ID); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"deleted": true}, nil
}

type buyParams struct {
	Caller   string `json:"caller"`
	ID       uint64 `json:"id"`
	Quantity uint64 `json:"quantity"`
}

func (s *Server) handleMarketBuy(req *RPCRequest) (interface{}, *RPCError) {
	var params buyParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.engine.Buy(caller, params.ID, params.Quantity); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"purchased": true}, nil
}

type editParams struct {
	Caller        string          `json:"caller"`
	ID            uint64          `json:"id"`
	Metadata      market.Metadata `json:"metadata"`
	Price         *big.Int        `json:"price"`
	TotalEntrants uint64          `json:"totalEntrants"`
}

func (s *Server) handleMarketEdit(req *RPCRequest) (interface{}, *RPCError) {
	var params editParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.engine.Edit(caller, params.ID, params.Metadata, params.Price, params.TotalEntrants); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"edited": true}, nil
}

type changeTokenParams struct {
	Caller string `json:"caller"`
	Symbol string `json:"symbol"`
}

func (s *Server) handleMarketChangeToken(req *RPCRequest) (interface{}, *RPCError) {
	var params changeTokenParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	ledger := token.New(s.kv, params.Symbol)
	if err := s.engine.ChangeToken(caller, ledger); err != nil {
		return nil, errorToRPC(err)
	}
	s.mu.Lock()
	s.token = ledger
	s.mu.Unlock()
	return map[string]string{"symbol": ledger.Symbol()}, nil
}

type roleParams struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
}

func (s *Server) handleMarketAddRole(req *RPCRequest) (interface{}, *RPCError) {
	var params roleParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.engine.AddRole(caller, addr); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"granted": true}, nil
}

func (s *Server) handleMarketRemoveRole(req *RPCRequest) (interface{}, *RPCError) {
	var params roleParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.engine.RemoveRole(caller, addr); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"revoked": true}, nil
}

type hasRoleParams struct {
	Address string `json:"address"`
}

func (s *Server) handleMarketHasRole(req *RPCRequest) (interface{}, *RPCError) {
	var params hasRoleParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		return nil, invalidParams(err)
	}
	ok, err := s.engine.HasRole(addr)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"hasRole": ok}, nil
}

type withdrawParams struct {
	Caller string   `json:"caller"`
	Amount *big.Int `json:"amount"`
}

func (s *Server) handleMarketWithdraw(req *RPCRequest) (interface{}, *RPCError) {
	var params withdrawParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.engine.WithdrawToken(caller, params.Amount); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]string{"amount": params.Amount.String()}, nil
}

type getListingParams struct {
	ID uint64 `json:"id"`
}

func (s *Server) handleMarketGetListing(req *RPCRequest) (interface{}, *RPCError) {
	var params getListingParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	listing, ok, err := s.engine.Listing(params.ID)
	if err != nil {
		return nil, errorToRPC(err)
	}
	if !ok {
		return nil, errorToRPC(market.ErrInvalidListing)
	}
	active, err := s.engine.IsActive(params.ID)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return listingResultFrom(listing, active), nil
}

func (s *Server) handleMarketActiveListings(req *RPCRequest) (interface{}, *RPCError) {
	ids, err := s.engine.ActiveListings()
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string][]uint64{"ids": ids}, nil
}

func (s *Server) handleMarketClosedListings(req *RPCRequest) (interface{}, *RPCError) {
	ids, err := s.engine.ClosedListings()
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string][]uint64{"ids": ids}, nil
}
