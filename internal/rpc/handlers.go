package rpc

import (
	"fmt"

	"github.com/TrinityChain/TrinityChain/pkg/types"
)

func (s *Server) handleSubmitTransaction(req *Request) (interface{}, *Error) {
	var p TransactionParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	if p.Transaction == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "transaction is required"}
	}
	if err := p.Transaction.Validate(); err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid transaction: %v", err)}
	}
	if err := s.pool.Add(p.Transaction); err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	return SubmitResult{Hash: p.Transaction.Hash().String()}, nil
}

func (s *Server) handleSubmitBlock(req *Request) (interface{}, *Error) {
	var p BlockParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	if p.Block == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "block is required"}
	}
	if err := s.chain.ApplyBlock(p.Block); err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	return SubmitResult{Hash: p.Block.Hash().String()}, nil
}

func (s *Server) handleGetHeight(req *Request) (interface{}, *Error) {
	return HeightResult{Height: s.chain.Height(), TipHash: s.chain.TipHash().String()}, nil
}

func (s *Server) handleGetBlock(req *Request) (interface{}, *Error) {
	var p HeightParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	blk, blkErr := s.chain.GetBlockByHeight(p.Height)
	if blkErr != nil {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("block at height %d not found", p.Height)}
	}
	return NewBlockResult(blk), nil
}

func (s *Server) handleGetTransaction(req *Request) (interface{}, *Error) {
	var p HashParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	hash, parseErr := types.HexToHash(p.Hash)
	if parseErr != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid hash"}
	}
	t, txErr := s.chain.GetTransaction(hash)
	if txErr != nil {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("transaction %s not found", p.Hash)}
	}
	return TransactionResult{Hash: t.Hash().String(), Transaction: t}, nil
}

func (s *Server) handleGetBalance(req *Request) (interface{}, *Error) {
	var p AddressParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	bal := s.chain.GetBalance(types.Address(p.Address))
	return BalanceResult{Address: p.Address, Balance: bal.String()}, nil
}

func (s *Server) handleMempoolStatus(req *Request) (interface{}, *Error) {
	return MempoolStatusResult{Count: s.pool.Count()}, nil
}

func (s *Server) handleStartMining(req *Request) (interface{}, *Error) {
	if s.mine == nil {
		return nil, &Error{Code: CodeNotFound, Message: "mining not enabled on this node"}
	}
	s.mine.Start()
	return s.miningStatus(), nil
}

func (s *Server) handleStopMining(req *Request) (interface{}, *Error) {
	if s.mine == nil {
		return nil, &Error{Code: CodeNotFound, Message: "mining not enabled on this node"}
	}
	s.mine.Stop()
	return s.miningStatus(), nil
}

func (s *Server) handleMiningStatus(req *Request) (interface{}, *Error) {
	if s.mine == nil {
		return MiningStatusResult{Mining: false}, nil
	}
	return s.miningStatus(), nil
}

func (s *Server) miningStatus() MiningStatusResult {
	status := MiningStatusResult{
		Mining:      s.mine.Running(),
		BlocksMined: s.mine.BlocksMined(),
	}
	if err := s.mine.LastError(); err != nil {
		status.LastError = err.Error()
	}
	return status
}

func (s *Server) handlePeerCount(req *Request) (interface{}, *Error) {
	if s.peers == nil {
		return PeerCountResult{Peers: 0}, nil
	}
	return PeerCountResult{Peers: s.peers.PeerCount()}, nil
}
