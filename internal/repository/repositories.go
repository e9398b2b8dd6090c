package repository

import (
	"github.com/kvanc/server/internal/model"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Repositories interface {
	Admission() AdmissionRepository
	Vote() VoteRepository
	// Result is nil when no database is configured.
	Result() ResultRepository
}

type repositories struct {
	admissionRepository AdmissionRepository
	voteRepository      VoteRepository
	resultRepository    ResultRepository
}

// NewRepositories builds the in-memory session stores. db may be nil, in which
// case result snapshots are not archived.
func NewRepositories(db *gorm.DB) Repositories {
	var resultRepository ResultRepository
	if db != nil {
		err := db.AutoMigrate(&model.ResultRecord{})
		if err != nil {
			logrus.Panic(err)
		}
		resultRepository = newResultRepository(db)
	}

	return &repositories{
		admissionRepository: newAdmissionRepository(),
		voteRepository:      newVoteRepository(),
		resultRepository:    resultRepository,
	}
}

func (r repositories) Admission() AdmissionRepository {
	return r.admissionRepository
}

func (r repositories) Vote() VoteRepository {
	return r.voteRepository
}

func (r repositories) Result() ResultRepository {
	return r.resultRepository
}
