package httpapi

import (
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"absensi/internal/auth"
	"absensi/internal/student"
	"absensi/internal/token"
)

func (s *Server) login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Username/password diperlukan"})
		return
	}
	tok, u, err := s.gate.IssueCredential(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Username atau password salah"})
			return
		}
		log.Printf("login failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Gagal memproses login"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login berhasil",
		"token":   tok,
		"user": gin.H{
			"id":       u.ID,
			"username": u.Username,
			"nama":     u.Nama,
			"role":     u.Role,
		},
	})
}

// qrGenerate issues the signed card payload for a student and renders
// it as a printable QR image.
func (s *Server) qrGenerate(c *gin.Context) {
	nis := c.Param("nis")
	st, err := s.students.GetByNIS(c.Request.Context(), nis)
	if err != nil {
		if errors.Is(err, student.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Siswa dengan NIS " + nis + " tidak ditemukan"})
			return
		}
		log.Printf("qr generate lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Gagal menghasilkan QR code"})
		return
	}
	payload, err := s.codec.EncodeSigned(st.NIS, st.ID, st.CardVersion)
	if err != nil {
		log.Printf("qr payload encode failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Gagal menghasilkan QR code"})
		return
	}
	png, err := token.QRImage(payload)
	if err != nil {
		log.Printf("qr render failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Gagal menghasilkan QR code"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"student": gin.H{
			"nis":          st.NIS,
			"nisn":         st.NISN,
			"nama":         st.Nama,
			"gender":       st.Gender,
			"kelas":        st.Kelas,
			"card_version": st.CardVersion,
		},
		"qr_data":  payload,
		"qr_image": "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	})
}

// listStudents returns every registered student, ordered by NIS. The
// admin UI walks this list when printing QR cards in bulk.
func (s *Server) listStudents(c *gin.Context) {
	students, err := s.students.List(c.Request.Context())
	if err != nil {
		log.Printf("student list failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Gagal mengambil data siswa"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "total": len(students), "students": students})
}

// reissueCard bumps card_version, revoking every previously printed
// signed code for the student.
func (s *Server) reissueCard(c *gin.Context) {
	nis := c.Param("nis")
	st, err := s.students.BumpCardVersion(c.Request.Context(), nis)
	if err != nil {
		if errors.Is(err, student.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Siswa dengan NIS " + nis + " tidak ditemukan"})
			return
		}
		log.Printf("card reissue failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Gagal menerbitkan kartu baru"})
		return
	}
	log.Printf("card reissued | NIS=%s | card_version=%d", st.NIS, st.CardVersion)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Kartu baru diterbitkan",
		"student": gin.H{"nis": st.NIS, "nama": st.Nama, "card_version": st.CardVersion},
	})
}

// scanHistory returns the recent-scan feed.
func (s *Server) scanHistory(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	entries, err := s.feed.Recent(c.Request.Context(), limit)
	if err != nil {
		log.Printf("scan history fetch failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Gagal mengambil riwayat scan"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "total": len(entries), "scans": entries})
}
