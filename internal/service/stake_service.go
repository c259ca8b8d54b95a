package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"chainacademy_backend/internal/chain"
	"chainacademy_backend/internal/model"
	"chainacademy_backend/internal/repository"
	"chainacademy_backend/internal/util"
	"chainacademy_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

type StakeService struct {
	enrollmentRepo *repository.EnrollmentRepository
	courseRepo     *repository.CourseRepository
	userRepo       *repository.UserRepository
	chainClient    *chain.Client
	rdb            *redis.Client
	cacheTTL       time.Duration
}

func NewStakeService(
	enrollmentRepo *repository.EnrollmentRepository,
	courseRepo *repository.CourseRepository,
	userRepo *repository.UserRepository,
	chainClient *chain.Client,
	rdb *redis.Client,
	cacheTTL time.Duration,
) *StakeService {
	return &StakeService{
		enrollmentRepo: enrollmentRepo,
		courseRepo:     courseRepo,
		userRepo:       userRepo,
		chainClient:    chainClient,
		rdb:            rdb,
		cacheTTL:       cacheTTL,
	}
}

// EligibilityView joins the locally tracked refund standing with the staking
// contract's answer. The contract is authoritative for whether a claim will
// succeed; the local columns explain which track qualified.
type EligibilityView struct {
	Enrollment           *model.Enrollment  `json:"enrollment"`
	StakeAmountEth       float64            `json:"stakeAmountEth"`
	RequiredCompletion   int                `json:"requiredCompletion"`
	RequiredTestAverage  int                `json:"requiredTestAverage"`
	RequiredTotalMinutes int                `json:"requiredTotalMinutes"`
	Chain                *chain.Eligibility `json:"chain,omitempty"`
	ChainError           string             `json:"chainError,omitempty"`
}

func (s *StakeService) Eligibility(ctx context.Context, userID, courseID uint) (*EligibilityView, error) {
	enrollment, err := s.enrollmentRepo.FindByUserAndCourse(userID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotEnrolled
		}
		return nil, err
	}
	course, err := s.courseRepo.FindByID(courseID)
	if err != nil {
		return nil, err
	}

	view := &EligibilityView{
		Enrollment:           enrollment,
		StakeAmountEth:       course.StakeAmountEth,
		RequiredCompletion:   course.RequiredCompletion,
		RequiredTestAverage:  course.RequiredTestAverage,
		RequiredTotalMinutes: course.DailyLearningMinutes * course.DurationDays,
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user.WalletAddress == "" || enrollment.StakedAmountEth == 0 {
		return view, nil
	}

	elig, cerr := s.chainEligibility(ctx, user.WalletAddress, courseID)
	if cerr != nil {
		// A node outage degrades the response, it does not fail it.
		view.ChainError = "chain read unavailable"
		logger.Log.Warn("chain eligibility read failed",
			zap.Uint("userId", userID), zap.Uint("courseId", courseID), zap.Error(cerr))
		return view, nil
	}
	view.Chain = elig
	return view, nil
}

func (s *StakeService) chainEligibility(ctx context.Context, wallet string, courseID uint) (*chain.Eligibility, error) {
	key := fmt.Sprintf("chain:eligibility:%s:%d", wallet, courseID)
	if cached, err := s.rdb.Get(ctx, key).Result(); err == nil {
		var elig chain.Eligibility
		if json.Unmarshal([]byte(cached), &elig) == nil {
			return &elig, nil
		}
	}

	elig, err := s.chainClient.RefundEligibility(ctx, wallet, courseID)
	if err != nil {
		return nil, err
	}

	if payload, merr := json.Marshal(elig); merr == nil {
		s.rdb.Set(ctx, key, payload, s.cacheTTL)
	}
	return elig, nil
}

// RecordRefundClaimed stores the claim transaction hash after the learner's
// wallet has claimed on-chain. The contract already settled the funds; this
// is bookkeeping so the UI stops offering the claim.
func (s *StakeService) RecordRefundClaimed(ctx context.Context, userID, courseID uint, txHash string) (*model.Enrollment, error) {
	if !txHashPattern.MatchString(txHash) {
		return nil, util.ErrInvalidTxHash
	}

	enrollment, err := s.enrollmentRepo.FindByUserAndCourse(userID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotEnrolled
		}
		return nil, err
	}
	if enrollment.RefundClaimed {
		return enrollment, nil
	}

	if err := s.enrollmentRepo.SetRefundClaimed(enrollment.ID, txHash); err != nil {
		return nil, err
	}
	enrollment.RefundClaimed = true
	enrollment.RefundClaimTxHash = txHash

	// Drop the cached chain view, the contract state just changed.
	if user, uerr := s.userRepo.FindByID(userID); uerr == nil && user.WalletAddress != "" {
		s.rdb.Del(ctx, fmt.Sprintf("chain:eligibility:%s:%d", user.WalletAddress, courseID))
	}
	return enrollment, nil
}
