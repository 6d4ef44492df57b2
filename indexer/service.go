package indexer

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Service struct {
	engine     *gin.Engine
	indexer    *ChainIndexer
	listenAddr string
}

func NewService(listenAddr string, indexer *ChainIndexer) *Service {
	r := gin.Default()
	s := &Service{
		engine:     r,
		indexer:    indexer,
		listenAddr: listenAddr,
	}
	s.engine.POST("/getProject", s.handleGetProject)
	s.engine.POST("/getBackers", s.handleGetBackers)
	s.engine.POST("/getVotes", s.handleGetVotes)
	s.engine.POST("/getReleases", s.handleGetReleases)
	s.engine.POST("/getRefunds", s.handleGetRefunds)
	return s
}

func (s *Service) Start() {
	s.engine.Run(s.listenAddr)
}

type GetProjectResponse struct {
	Project  *ProjectRow `json:"project"`
	Releases []Release   `json:"releases"`
}

func (s *Service) handleGetProject(c *gin.Context) {
	project, err := s.indexer.getProject()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	releases, err := s.indexer.getReleases()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetProjectResponse{
		Project:  project,
		Releases: releases,
	})
}

type GetBackersReq struct {
	Address  string `json:"address"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

type GetBackersResponse struct {
	Backers []Contribution `json:"backers"`
	Total   uint64         `json:"total"`
}

func (s *Service) handleGetBackers(c *gin.Context) {
	var response GetBackersResponse
	response.Backers = make([]Contribution, 0)
	var requestData GetBackersReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if requestData.Address != "" {
		contribution, err := s.indexer.getContributionByAddress(requestData.Address)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if contribution != nil {
			response.Backers = append(response.Backers, *contribution)
			response.Total = 1
		}
		c.JSON(http.StatusOK, response)
		return
	}
	contributions, total, err := s.indexer.getContributions(requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response.Backers = append(response.Backers, contributions...)
	response.Total = total
	c.JSON(http.StatusOK, response)
}

type GetVotesReq struct {
	Milestone uint64 `json:"milestone"`
	Voter     string `json:"voter"`
	Page      int    `json:"page"`
	PageSize  int    `json:"pageSize"`
}

type GetVotesResponse struct {
	Votes []Vote `json:"votes"`
	Total uint64 `json:"total"`
}

func (s *Service) handleGetVotes(c *gin.Context) {
	var response GetVotesResponse
	response.Votes = make([]Vote, 0)
	var requestData GetVotesReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var votes []Vote
	var total uint64
	var err error
	if requestData.Voter != "" {
		votes, total, err = s.indexer.getVotesByVoter(requestData.Voter, requestData.Page, requestData.PageSize)
	} else {
		votes, total, err = s.indexer.getVotesByMilestone(requestData.Milestone, requestData.Page, requestData.PageSize)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response.Votes = append(response.Votes, votes...)
	response.Total = total
	c.JSON(http.StatusOK, response)
}

type GetReleasesResponse struct {
	Releases []Release `json:"releases"`
}

func (s *Service) handleGetReleases(c *gin.Context) {
	releases, err := s.indexer.getReleases()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if releases == nil {
		releases = make([]Release, 0)
	}
	c.JSON(http.StatusOK, GetReleasesResponse{Releases: releases})
}

type GetRefundsReq struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type GetRefundsResponse struct {
	Refunds []Refund `json:"refunds"`
	Total   uint64   `json:"total"`
}

func (s *Service) handleGetRefunds(c *gin.Context) {
	var response GetRefundsResponse
	response.Refunds = make([]Refund, 0)
	var requestData GetRefundsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	refunds, total, err := s.indexer.getRefunds(requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response.Refunds = append(response.Refunds, refunds...)
	response.Total = total
	c.JSON(http.StatusOK, response)
}
