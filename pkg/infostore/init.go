package infostore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chainfleet/groupmgr/pkg/grouperrors"
	"github.com/chainfleet/groupmgr/pkg/log"
	"github.com/chainfleet/groupmgr/pkg/storage"
	"github.com/chainfleet/groupmgr/pkg/types"
)

// Init performs the cold-start reconstruction protocol: ensure t_chain
// exists, load every chain row, then load every group (meta + node tables)
// belonging to each chain, populating the cache before the Manager accepts
// its first request. It blocks until storage has answered every step.
func (s *InfoStore) Init(store *storage.GroupStorage) error {
	logger := log.WithComponent("infostore")

	if err := createChainTable(store); err != nil {
		return grouperrors.NewGroupManagerInitError(fmt.Errorf("create chain table: %w", err))
	}

	chainIDs, err := getChainList(store)
	if err != nil {
		return grouperrors.NewGroupManagerInitError(fmt.Errorf("get chain list: %w", err))
	}
	if len(chainIDs) == 0 {
		return nil
	}

	chains, err := getChainInfos(store, chainIDs)
	if err != nil {
		return grouperrors.NewGroupManagerInitError(fmt.Errorf("get chain infos: %w", err))
	}
	for _, chain := range chains {
		s.PutChain(chain)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, chain := range chains {
		for _, groupID := range chain.GroupIDs {
			wg.Add(1)
			go func(chainID, groupID string) {
				defer wg.Done()
				group, err := getGroupInfo(store, chainID, groupID)
				if err != nil {
					logger.Error().Err(err).Str("chain_id", chainID).Str("group_id", groupID).
						Msg("init: failed to load group, Init will return the first such error")
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				s.UpdateGroupCache(group, true)
			}(chain.ChainID, groupID)
		}
	}
	wg.Wait()

	groups, nodes := s.RecordedIntents()
	if len(groups) > 0 || len(nodes) > 0 {
		logger.Warn().Int("groups", len(groups)).Int("nodes", len(nodes)).
			Msg("init: recorded intents outstanding, reconciler will re-drive them")
	}

	return firstErr
}

func createChainTable(store *storage.GroupStorage) error {
	errCh := make(chan error, 1)
	store.AsyncCreateChainTable(nil, func(err error) { errCh <- err })
	err := <-errCh
	if err != nil && errors.Is(err, grouperrors.ErrTableExists) {
		return nil
	}
	return err
}

func getChainList(store *storage.GroupStorage) ([]string, error) {
	type result struct {
		ids []string
		err error
	}
	ch := make(chan result, 1)
	store.AsyncGetChainList(func(ids []string, err error) { ch <- result{ids, err} })
	r := <-ch
	return r.ids, r.err
}

func getChainInfos(store *storage.GroupStorage, chainIDs []string) ([]*types.ChainInfo, error) {
	type result struct {
		infos []*types.ChainInfo
		err   error
	}
	ch := make(chan result, 1)
	store.AsyncGetChainInfos(chainIDs, func(infos []*types.ChainInfo, err error) { ch <- result{infos, err} })
	r := <-ch
	return r.infos, r.err
}

func getGroupInfo(store *storage.GroupStorage, chainID, groupID string) (*types.GroupInfo, error) {
	type result struct {
		group *types.GroupInfo
		err   error
	}
	ch := make(chan result, 1)
	store.AsyncGetGroupInfo(chainID, groupID, func(group *types.GroupInfo, err error) { ch <- result{group, err} })
	r := <-ch
	return r.group, r.err
}
