package rpc

import (
	"math/big"

	"fytemarket/token"
)

func (s *Server) ledger() *token.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

type balanceParams struct {
	Address string `json:"address"`
}

type balanceResult struct {
	Address string   `json:"address"`
	Symbol  string   `json:"symbol"`
	Balance *big.Int `json:"balance"`
}

func (s *Server) handleTokenBalanceOf(req *RPCRequest) (interface{}, *RPCError) {
	var params balanceParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		return nil, invalidParams(err)
	}
	ledger := s.ledger()
	balance, err := ledger.BalanceOf(addr)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return balanceResult{Address: params.Address, Symbol: ledger.Symbol(), Balance: balance}, nil
}

type allowanceParams struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
}

func (s *Server) handleTokenAllowance(req *RPCRequest) (interface{}, *RPCError) {
	var params allowanceParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		return nil, invalidParams(err)
	}
	spender, err := parseAddress(params.Spender)
	if err != nil {
		return nil, invalidParams(err)
	}
	allowance, err := s.ledger().Allowance(owner, spender)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]*big.Int{"allowance": allowance}, nil
}

func (s *Server) handleTokenTotalSupply(req *RPCRequest) (interface{}, *RPCError) {
	ledger := s.ledger()
	supply, err := ledger.TotalSupply()
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]interface{}{"symbol": ledger.Symbol(), "totalSupply": supply}, nil
}

type approveParams struct {
	Caller  string   `json:"caller"`
	Spender string   `json:"spender"`
	Amount  *big.Int `json:"amount"`
}

func (s *Server) handleTokenApprove(req *RPCRequest) (interface{}, *RPCError) {
	var params approveParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	spender, err := parseAddress(params.Spender)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.ledger().Approve(caller, spender, params.Amount); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"approved": true}, nil
}

type transferParams struct {
	Caller string   `json:"caller"`
	To     string   `json:"to"`
	Amount *big.Int `json:"amount"`
}

func (s *Server) handleTokenTransfer(req *RPCRequest) (interface{}, *RPCError) {
	var params transferParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	to, err := parseAddress(params.To)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.ledger().Transfer(caller, to, params.Amount); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"transferred": true}, nil
}

type claimParams struct {
	Caller string   `json:"caller"`
	Amount *big.Int `json:"amount"`
}

func (s *Server) handleTokenClaim(req *RPCRequest) (interface{}, *RPCError) {
	var params claimParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.ledger().Claim(caller, params.Amount); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"claimed": true}, nil
}
