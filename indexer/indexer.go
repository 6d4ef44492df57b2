package indexer

import (
	"context"
	"errors"
	"time"

	mfund_types "github.com/milefund/mfund-app/types"

	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

type ChainIndexer struct {
	logger        cmtlog.Logger
	Url           string
	Height        int64
	db            *gorm.DB
	cli           *comethttp.HTTP
	eventHandlers map[string]eventHandler
	ChainId       string
}

func NewChainIndexer(logger cmtlog.Logger, dbPath string, chainUrl string) (*ChainIndexer, error) {
	logger.Info("NewChainIndexer", "dbPath", dbPath, "url", chainUrl)
	cli, err := comethttp.New(chainUrl, "/websocket")
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Height{}, &ProjectRow{}, &Contribution{}, &Vote{}, &Release{}, &Refund{}).Error; err != nil {
		return nil, err
	}
	h := Height{Id: 1}
	if err = db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	c := ChainIndexer{
		logger:        logger.With("module", "indexer"),
		Url:           chainUrl,
		Height:        int64(h.Height + 1),
		db:            db,
		cli:           cli,
		eventHandlers: map[string]eventHandler{},
	}

	c.eventHandlers = map[string]eventHandler{
		mfund_types.EventProjectInitType: c.handleEventProjectInit,
		mfund_types.EventFundType:        c.handleEventFund,
		mfund_types.EventVoteType:        c.handleEventVote,
		mfund_types.EventReleaseType:     c.handleEventRelease,
		mfund_types.EventRefundType:      c.handleEventRefund,
	}
	return &c, nil
}

type eventHandler func(ctx context.Context, event abci.Event, height int64)

func (c *ChainIndexer) handleEvent(ctx context.Context, event abci.Event, height int64) {
	if h, ok := c.eventHandlers[event.Type]; ok {
		h(ctx, event, height)
	}
}

func (c *ChainIndexer) handleEventProjectInit(ctx context.Context, event abci.Event, height int64) {
	ev := mfund_types.DecodeEventProjectInit(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	row := ProjectRow{
		Id:             1,
		Creator:        ev.Creator,
		CreatorAddress: ev.CreatorAddress,
		Token:          ev.Token,
		Goal:           ev.Goal,
		Deadline:       ev.Deadline,
		Milestones:     ev.Milestones,
		InitHeight:     uint64(height),
	}
	if err := c.db.Save(&row).Error; err != nil {
		c.logger.Error("save project fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventFund(ctx context.Context, event abci.Event, height int64) {
	ev := mfund_types.DecodeEventFund(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	contribution := Contribution{
		Id:      ev.Backer,
		Address: ev.Address,
		Amount:  ev.Total,
		Height:  uint64(height),
	}
	if err := c.db.Save(&contribution).Error; err != nil {
		c.logger.Error("save contribution fail", "err", err)
	}

	var row ProjectRow
	if err := c.db.First(&row, 1).Error; err != nil {
		c.logger.Error("get project fail", "err", err)
		return
	}
	row.TotalRaised = ev.TotalRaised
	if err := c.db.Save(&row).Error; err != nil {
		c.logger.Error("save project fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventVote(ctx context.Context, event abci.Event, height int64) {
	ev := mfund_types.DecodeEventVote(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	vote := Vote{
		Milestone:    ev.Milestone,
		VoterIndex:   ev.Backer,
		VoterAddress: ev.Address,
		Weight:       ev.Weight,
		Approved:     ev.Approved,
		Height:       uint64(height),
	}
	if err := c.db.Create(&vote).Error; err != nil {
		c.logger.Error("save vote fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventRelease(ctx context.Context, event abci.Event, height int64) {
	ev := mfund_types.DecodeEventRelease(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	release := Release{
		Id:             ev.Milestone + 1,
		Milestone:      ev.Milestone,
		Amount:         ev.Amount,
		Creator:        ev.Creator,
		CreatorAddress: ev.CreatorAddress,
		Caller:         ev.Caller,
		Height:         uint64(height),
	}
	if err := c.db.Save(&release).Error; err != nil {
		c.logger.Error("save release fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventRefund(ctx context.Context, event abci.Event, height int64) {
	ev := mfund_types.DecodeEventRefund(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	refund := Refund{
		BackerIndex: ev.Backer,
		BackerAddr:  ev.Address,
		Amount:      ev.Amount,
		Height:      uint64(height),
	}
	if err := c.db.Create(&refund).Error; err != nil {
		c.logger.Error("save refund fail", "err", err)
	}

	var contribution Contribution
	if err := c.db.First(&contribution, ev.Backer).Error; err != nil {
		c.logger.Error("get contribution fail", "err", err)
		return
	}
	contribution.Refunded = true
	if err := c.db.Save(&contribution).Error; err != nil {
		c.logger.Error("save contribution fail", "err", err)
	}
}

func (c *ChainIndexer) Start(ctx context.Context) {
	var err error
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.cli == nil {
				c.cli, err = comethttp.New(c.Url, "/websocket")
				if err != nil {
					c.logger.Error("connect fail", "err", err)
					continue
				}
			}
			b, err := c.cli.Status(context.TODO())
			if err != nil {
				c.logger.Error("get status fail", "err", err)
				if !c.cli.IsRunning() {
					c.cli.Stop()
					c.cli, err = comethttp.New(c.Url, "/websocket")
					if err != nil {
						c.logger.Error("reconnect fail", "err", err)
						continue
					}
				}
				continue
			}
			for b.SyncInfo.LatestBlockHeight > c.Height {
				time.Sleep(time.Millisecond * 100)
				c.logger.Info("indexer syncing", "height", c.Height)
				events, err := c.cli.BlockResults(ctx, &c.Height)
				if err != nil {
					c.logger.Error("get block results fail", "err", err)
					if !c.cli.IsRunning() {
						c.cli.Stop()
						c.cli, err = comethttp.New(c.Url, "/websocket")
						if err != nil {
							c.logger.Error("reconnect fail", "err", err)
							continue
						}
					}
					continue
				}
				for _, res := range events.TxsResults {
					for _, event := range res.Events {
						c.handleEvent(ctx, event, c.Height)
					}
				}
				if err := c.db.Save(Height{
					Id:     1,
					Height: uint64(c.Height),
				}).Error; err != nil {
					c.logger.Error("save height fail", "err", err)
					continue
				}
				c.Height++
			}
		}
	}
}

func (c *ChainIndexer) getProject() (*ProjectRow, error) {
	var row ProjectRow
	if err := c.db.First(&row, 1).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (c *ChainIndexer) getContributions(page int, pageSize int) ([]Contribution, uint64, error) {
	var contributions []Contribution
	err := c.db.Order("amount desc").Offset(page * pageSize).Limit(pageSize).Find(&contributions).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Contribution{}).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return contributions, total, nil
}

func (c *ChainIndexer) getContributionByAddress(address string) (*Contribution, error) {
	var contribution Contribution
	if err := c.db.Where("address = ?", address).First(&contribution).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contribution, nil
}

func (c *ChainIndexer) getVotesByMilestone(milestone uint64, page int, pageSize int) ([]Vote, uint64, error) {
	var votes []Vote
	err := c.db.Where("milestone = ?", milestone).Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&votes).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Vote{}).Where("milestone = ?", milestone).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return votes, total, nil
}

func (c *ChainIndexer) getVotesByVoter(voter string, page int, pageSize int) ([]Vote, uint64, error) {
	var votes []Vote
	err := c.db.Where("voter_address = ?", voter).Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&votes).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Vote{}).Where("voter_address = ?", voter).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return votes, total, nil
}

func (c *ChainIndexer) getReleases() ([]Release, error) {
	var releases []Release
	err := c.db.Order("milestone asc").Find(&releases).Error
	if err != nil {
		return nil, err
	}
	return releases, nil
}

func (c *ChainIndexer) getRefunds(page int, pageSize int) ([]Refund, uint64, error) {
	var refunds []Refund
	err := c.db.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&refunds).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Refund{}).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return refunds, total, nil
}
