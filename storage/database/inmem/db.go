package inmemdb

import (
	"sync"

	"github.com/ricardious/semestrix/core/history"
	"github.com/ricardious/semestrix/core/program"
	"github.com/ricardious/semestrix/core/student"
	"github.com/ricardious/semestrix/core/user"
)

type (
	DB struct {
		user    *userTable
		program *programTable
		history *historyTable
		profile *profileTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	// curriculumRow pins a CourseNode to a semester within a version.
	curriculumRow struct {
		versionID int
		semester  int
		node      program.CourseNode
	}

	programTable struct {
		sync.RWMutex
		programs   map[int]*program.Program
		versions   map[int]*program.Version
		courses    map[int]*program.Course
		curriculum []curriculumRow

		programPK, versionPK, coursePK, curriculumPK int
	}

	historyTable struct {
		sync.RWMutex
		table map[string]map[int]*history.Item // userID -> item id -> item
		pk    int
	}

	profileTable struct {
		sync.RWMutex
		table map[string]*student.Profile // keyed by userID
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		program: &programTable{
			programs: make(map[int]*program.Program),
			versions: make(map[int]*program.Version),
			courses:  make(map[int]*program.Course),
		},
		history: &historyTable{table: make(map[string]map[int]*history.Item)},
		profile: &profileTable{table: make(map[string]*student.Profile)},
	}
	return db, nil
}
