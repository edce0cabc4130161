package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"absensi/internal/ledger"
	"absensi/internal/scan"
	"absensi/internal/student"
	"absensi/internal/token"
)

// scanNIS handles the legacy USB barcode scanner, which sends the
// registration number directly.
func (s *Server) scanNIS(c *gin.Context) {
	var req struct {
		NIS      string `json:"nis" binding:"required"`
		Location string `json:"location"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "NIS diperlukan"})
		return
	}
	if req.Location == "" {
		req.Location = "Scanner USB"
	}
	log.Printf("legacy scan received | NIS=%s | IP=%s", req.NIS, c.ClientIP())

	st, err := s.students.GetByNIS(c.Request.Context(), req.NIS)
	if err != nil {
		s.respondScanError(c, err, st)
		return
	}
	rec, err := s.records.RecordAttendance(c.Request.Context(), st.ID, st.NIS, ledger.StatusHadir, ledger.MethodScannerNIS, req.Location, "")
	if err != nil {
		s.respondScanError(c, err, st)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Absensi berhasil",
		"student": gin.H{"nis": st.NIS, "nama": st.Nama, "kelas": st.Kelas},
		"attendance": gin.H{
			"id":     rec.ID,
			"date":   rec.Tanggal.Format("2006-01-02"),
			"time":   rec.Waktu,
			"method": rec.Metode,
		},
	})
}

// scanNISN handles barcode scanners sending the 10-digit national number.
func (s *Server) scanNISN(c *gin.Context) {
	var req struct {
		NISN     string `json:"nisn" binding:"required"`
		Location string `json:"location"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "NISN diperlukan"})
		return
	}
	if req.Location == "" {
		req.Location = "Scanner NISN USB"
	}
	log.Printf("NISN scan received | NISN=%s | IP=%s", req.NISN, c.ClientIP())

	if !token.ValidNISN(req.NISN) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "NISN harus 10 digit angka. Diterima: " + req.NISN})
		return
	}
	st, err := s.students.GetByNISN(c.Request.Context(), req.NISN)
	if err != nil {
		s.respondScanError(c, err, st)
		return
	}
	rec, err := s.records.RecordAttendance(c.Request.Context(), st.ID, st.NIS, ledger.StatusHadir, ledger.MethodScannerNISN, req.Location, "")
	if err != nil {
		s.respondScanError(c, err, st)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Absensi NISN berhasil",
		"student": gin.H{"nis": st.NIS, "nisn": st.NISN, "nama": st.Nama, "gender": st.Gender},
		"attendance": gin.H{
			"id":     rec.ID,
			"date":   rec.Tanggal.Format("2006-01-02"),
			"time":   rec.Waktu,
			"method": rec.Metode,
		},
	})
}

// qrVerify runs the full verification pipeline over a scanned QR
// payload, bare NISN or signed envelope.
func (s *Server) qrVerify(c *gin.Context) {
	var req struct {
		QRData   string `json:"qr_data"`
		Token    string `json:"token"`
		Location string `json:"location"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "QR data diperlukan"})
		return
	}
	// Older scanner builds send the payload as "token".
	payload := req.QRData
	if payload == "" {
		payload = req.Token
	}
	if payload == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "QR data diperlukan"})
		return
	}
	if req.Location == "" {
		req.Location = "QR Scanner"
	}
	log.Printf("QR scan received | IP=%s", c.ClientIP())

	res, err := s.pipeline.Verify(c.Request.Context(), payload, req.Location, ledger.MethodQR)
	if err != nil {
		s.respondScanError(c, err, res.Student)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Absensi QR berhasil",
		"student": gin.H{"nis": res.Student.NIS, "nisn": res.Student.NISN, "nama": res.Student.Nama, "gender": res.Student.Gender},
		"attendance": gin.H{
			"id":       res.Record.ID,
			"date":     res.Record.Tanggal.Format("2006-01-02"),
			"time":     res.Record.Waktu,
			"method":   res.Record.Metode,
			"location": res.Record.Lokasi,
		},
	})
}

// scanStatus reports whether a student can still scan today.
func (s *Server) scanStatus(c *gin.Context) {
	nis := c.Param("nis")
	st, err := s.students.GetByNIS(c.Request.Context(), nis)
	if err != nil {
		s.respondScanError(c, err, st)
		return
	}
	rec, err := s.records.TodayRecord(c.Request.Context(), st.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{
				"success":  true,
				"message":  "Siap scan",
				"can_scan": true,
				"student":  gin.H{"nis": st.NIS, "nama": st.Nama},
			})
			return
		}
		s.respondScanError(c, err, st)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    false,
		"message":    "Sudah absen hari ini",
		"can_scan":   false,
		"attendance": gin.H{"time": rec.Waktu},
	})
}

// respondScanError maps pipeline and ledger errors to the external
// outcome. Storage detail never reaches the response body.
func (s *Server) respondScanError(c *gin.Context, err error, st student.Student) {
	var dup *ledger.AlreadyRecordedError
	switch {
	case errors.Is(err, token.ErrFormat):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Format NISN tidak valid. Harus 10 digit angka"})
	case errors.Is(err, token.ErrUnsupported):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Tipe QR tidak dikenal"})
	case errors.Is(err, token.ErrSignature):
		log.Printf("invalid QR signature | IP=%s", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Signature tidak valid"})
	case errors.Is(err, scan.ErrStaleCard):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Kartu siswa sudah tidak berlaku"})
	case errors.Is(err, student.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Siswa tidak valid"})
	case errors.As(err, &dup):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"message": st.Nama + " sudah absen hari ini",
			"student": gin.H{"nis": st.NIS, "nama": st.Nama},
			"attendance": gin.H{
				"date": dup.Existing.Tanggal.Format("2006-01-02"),
				"time": dup.Existing.Waktu,
			},
		})
	default:
		log.Printf("scan failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Gagal menyimpan absensi"})
	}
}
