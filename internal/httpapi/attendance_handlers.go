package httpapi

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"absensi/internal/ledger"
	"absensi/internal/student"
)

func (s *Server) attendanceToday(c *gin.Context) {
	tanggal, _ := ledger.Today()
	s.listAttendance(c, tanggal)
}

func (s *Server) attendanceByDate(c *gin.Context) {
	raw := c.Query("date")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Parameter date diperlukan (YYYY-MM-DD)"})
		return
	}
	tanggal, err := parseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Format tanggal tidak valid (YYYY-MM-DD)"})
		return
	}
	s.listAttendance(c, tanggal)
}

func (s *Server) listAttendance(c *gin.Context, tanggal time.Time) {
	status := ledger.Status(c.Query("status"))
	var kelasID int64
	if v := c.Query("kelas_id"); v != "" {
		kelasID, _ = strconv.ParseInt(v, 10, 64)
	}
	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	entries, err := s.records.ListByDate(c.Request.Context(), tanggal, status, kelasID, limit, offset)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Status tidak valid"})
			return
		}
		log.Printf("attendance list failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Gagal mengambil data absensi"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"date":       tanggal.Format("2006-01-02"),
		"total":      len(entries),
		"attendance": entries,
	})
}

func (s *Server) studentAttendance(c *gin.Context) {
	nis := c.Param("nis")
	st, err := s.students.GetByNIS(c.Request.Context(), nis)
	if err != nil {
		if errors.Is(err, student.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Siswa dengan NIS " + nis + " tidak ditemukan"})
			return
		}
		log.Printf("student lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Gagal mengambil data siswa"})
		return
	}

	to, _ := ledger.Today()
	from := to.AddDate(0, 0, -30)
	if v := c.Query("start_date"); v != "" {
		if parsed, err := parseDate(v); err == nil {
			from = parsed
		}
	}
	if v := c.Query("end_date"); v != "" {
		if parsed, err := parseDate(v); err == nil {
			to = parsed
		}
	}

	records, counts, err := s.records.StudentHistory(c.Request.Context(), st.ID, from, to)
	if err != nil {
		log.Printf("student history failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Gagal mengambil riwayat absensi"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"student":    gin.H{"nis": st.NIS, "nisn": st.NISN, "nama": st.Nama, "kelas": st.Kelas},
		"from":       from.Format("2006-01-02"),
		"to":         to.Format("2006-01-02"),
		"summary":    counts,
		"attendance": records,
	})
}

func (s *Server) attendanceStatistics(c *gin.Context) {
	tanggal, _ := ledger.Today()
	if v := c.Query("date"); v != "" {
		parsed, err := parseDate(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Format tanggal tidak valid (YYYY-MM-DD)"})
			return
		}
		tanggal = parsed
	}
	stats, err := s.records.Statistics(c.Request.Context(), tanggal)
	if err != nil {
		log.Printf("statistics failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Gagal mengambil statistik"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "statistics": stats})
}

// manualAttendance records an entry for a student without a scan, with
// any of the known statuses. Same per-day uniqueness as scans.
func (s *Server) manualAttendance(c *gin.Context) {
	var req struct {
		NIS        string `json:"nis" binding:"required"`
		Status     string `json:"status" binding:"required"`
		Keterangan string `json:"keterangan"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "NIS dan status diperlukan"})
		return
	}
	status := ledger.Status(req.Status)
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Status harus salah satu: Hadir, Izin, Sakit, Alpha, Terlambat"})
		return
	}

	st, err := s.students.GetByNIS(c.Request.Context(), req.NIS)
	if err != nil {
		s.respondScanError(c, err, st)
		return
	}
	rec, err := s.records.RecordAttendance(c.Request.Context(), st.ID, st.NIS, status, ledger.MethodManual, "Manual Entry", req.Keterangan)
	if err != nil {
		s.respondScanError(c, err, st)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Absensi manual berhasil",
		"attendance": gin.H{
			"id":     rec.ID,
			"nis":    rec.NIS,
			"date":   rec.Tanggal.Format("2006-01-02"),
			"time":   rec.Waktu,
			"status": rec.Status,
			"metode": rec.Metode,
		},
	})
}

func (s *Server) updateAttendance(c *gin.Context) {
	var req struct {
		Status     string `json:"status" binding:"required"`
		Keterangan string `json:"keterangan"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Status diperlukan"})
		return
	}
	rec, err := s.records.UpdateStatus(c.Request.Context(), c.Param("id"), ledger.Status(req.Status), req.Keterangan)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Status harus salah satu: Hadir, Izin, Sakit, Alpha, Terlambat"})
		case errors.Is(err, ledger.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Absensi tidak ditemukan"})
		default:
			log.Printf("attendance update failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Gagal mengubah absensi"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Absensi diperbarui", "attendance": rec})
}

func (s *Server) deleteAttendance(c *gin.Context) {
	if err := s.records.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Absensi tidak ditemukan"})
			return
		}
		log.Printf("attendance delete failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Gagal menghapus absensi"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Absensi dihapus"})
}
