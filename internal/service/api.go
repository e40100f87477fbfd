package service

import (
	"time"

	"github.com/mmynk/tutorledger/internal/calculator"
	"github.com/mmynk/tutorledger/internal/models"
)

// ServiceName is the fully-qualified name of the ledger service.
const ServiceName = "tutorledger.v1.LedgerService"

// Procedure paths, one per RPC.
const (
	GetTeacherProcedure      = "/" + ServiceName + "/GetTeacher"
	SaveTeacherProcedure     = "/" + ServiceName + "/SaveTeacher"
	ListStudentsProcedure    = "/" + ServiceName + "/ListStudents"
	GetStudentProcedure      = "/" + ServiceName + "/GetStudent"
	CreateStudentProcedure   = "/" + ServiceName + "/CreateStudent"
	UpdateStudentProcedure   = "/" + ServiceName + "/UpdateStudent"
	DeleteStudentProcedure   = "/" + ServiceName + "/DeleteStudent"
	GetPaidStatusProcedure   = "/" + ServiceName + "/GetPaidStatus"
	GetMessageProcedure      = "/" + ServiceName + "/GetMessage"
	AddPackageProcedure      = "/" + ServiceName + "/AddPackage"
	ListLessonsProcedure     = "/" + ServiceName + "/ListLessons"
	AddLessonProcedure       = "/" + ServiceName + "/AddLesson"
	AddBatchLessonsProcedure = "/" + ServiceName + "/AddBatchLessons"
	ListPaymentsProcedure    = "/" + ServiceName + "/ListPayments"
	AddPaymentProcedure      = "/" + ServiceName + "/AddPayment"
	ListGroupsProcedure      = "/" + ServiceName + "/ListGroups"
	GetGroupProcedure        = "/" + ServiceName + "/GetGroup"
	CreateGroupProcedure     = "/" + ServiceName + "/CreateGroup"
	UpdateGroupProcedure     = "/" + ServiceName + "/UpdateGroup"
	DeleteGroupProcedure     = "/" + ServiceName + "/DeleteGroup"
	GetSettingsProcedure     = "/" + ServiceName + "/GetSettings"
	UpdateSettingsProcedure  = "/" + ServiceName + "/UpdateSettings"
	ExportBackupProcedure    = "/" + ServiceName + "/ExportBackup"
	ImportBackupProcedure    = "/" + ServiceName + "/ImportBackup"
	ResetDataProcedure       = "/" + ServiceName + "/ResetData"
)

// Empty is the request or response of calls that carry no data.
type Empty struct{}

// IDRequest names one student or group.
type IDRequest struct {
	ID string `json:"id"`
}

// StudentFilter optionally narrows a list to one student.
type StudentFilter struct {
	StudentID string `json:"studentId,omitempty"`
}

type TeacherResponse struct {
	// Teacher is nil until a profile has been saved.
	Teacher *models.Teacher `json:"teacher"`
}

type StudentsResponse struct {
	Students []models.Student `json:"students"`
}

type PaidStatusResponse struct {
	// Lessons are oldest first, each marked paid or unpaid by FIFO
	// allocation of the student's payments.
	Lessons []calculator.LessonStatus `json:"lessons"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type AddPackageRequest struct {
	StudentID string               `json:"studentId"`
	Count     int                  `json:"count"`
	Price     float64              `json:"price"`
	Method    models.PaymentMethod `json:"method,omitempty"`
}

type LessonsResponse struct {
	Lessons []models.Lesson `json:"lessons"`
}

type AddBatchLessonsRequest struct {
	Lessons []models.Lesson `json:"lessons"`
}

type PaymentsResponse struct {
	Payments []models.Payment `json:"payments"`
}

type GroupsResponse struct {
	Groups []models.Group `json:"groups"`
}

// BackupFile is an exported plaintext snapshot and a suggested file name.
type BackupFile struct {
	FileName  string    `json:"fileName"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
}

// ImportBackupRequest carries a backup file, plaintext or encrypted.
type ImportBackupRequest struct {
	Content string `json:"content"`
}

// ImportBackupResponse counts the records restored.
type ImportBackupResponse struct {
	Students int `json:"students"`
	Lessons  int `json:"lessons"`
	Payments int `json:"payments"`
	Groups   int `json:"groups"`
}
